package mapkit

import (
	"fmt"
	"io"
	"sync"

	"github.com/twpayne/go-kml"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
)

// Renderer draws a ViewState on a single Engine.
type Renderer struct {
	open    Opener
	adapter mapview.Adapter

	mu        sync.Mutex
	lifecycle domain.Lifecycle
	engine    Engine

	// tapMu guards onTap alone so a listener fired while mu is held
	// cannot block on it.
	tapMu sync.RWMutex
	onTap domain.TapHandler
}

// NewRenderer returns an unmounted renderer. A nil open uses OpenDocumentEngine.
func NewRenderer(open Opener, adapter mapview.Adapter) *Renderer {
	if open == nil {
		open = OpenDocumentEngine
	}
	return &Renderer{open: open, adapter: adapter, lifecycle: domain.LifecycleCreated}
}

func (r *Renderer) Provider() domain.Provider { return domain.ProviderMapKit }

func (r *Renderer) Lifecycle() domain.Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifecycle
}

func (r *Renderer) Mount(state domain.ViewState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lifecycle != domain.LifecycleCreated {
		return domain.ErrAlreadyMounted
	}

	engine, err := r.open()
	if err != nil {
		return fmt.Errorf("open mapkit engine: %w", err)
	}
	mounted := false
	defer func() {
		if !mounted {
			r.setTapHandler(nil)
			_ = engine.Release()
		}
	}()
	r.setTapHandler(state.OnTap)

	if err := engine.Configure(Configuration{
		MapType:                 MapType,
		ShowsUserLocation:       true,
		ShowsUserTrackingButton: true,
		ShowsCompass:            true,
	}); err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}
	engine.OnTap(r.handleTap)

	vp := r.adapter.InitialViewport(state)
	if err := engine.SetRegion(Region{
		Center:         toCoordinate(vp.Center),
		LatitudeDelta:  vp.LatitudeDelta,
		LongitudeDelta: vp.LongitudeDelta,
	}); err != nil {
		return fmt.Errorf("set initial region: %w", err)
	}
	if err := draw(engine, state); err != nil {
		return err
	}

	r.engine = engine
	r.lifecycle = domain.LifecycleMounted
	mounted = true
	return nil
}

func (r *Renderer) Update(state domain.ViewState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lifecycle != domain.LifecycleMounted {
		return domain.ErrNotMounted
	}
	r.setTapHandler(state.OnTap)
	return draw(r.engine, state)
}

func (r *Renderer) DispatchPress(payload []byte) error {
	r.mu.Lock()
	if r.lifecycle != domain.LifecycleMounted {
		r.mu.Unlock()
		return domain.ErrNotMounted
	}
	engine := r.engine
	r.mu.Unlock()
	return engine.DispatchPress(payload)
}

func (r *Renderer) Export(w io.Writer) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lifecycle != domain.LifecycleMounted {
		return "", domain.ErrNotMounted
	}
	return r.engine.Export(w)
}

func (r *Renderer) Unmount() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lifecycle != domain.LifecycleMounted {
		r.lifecycle = domain.LifecycleUnmounted
		return nil
	}
	engine := r.engine
	r.engine = nil
	r.setTapHandler(nil)
	r.lifecycle = domain.LifecycleUnmounted
	if err := engine.Release(); err != nil {
		return fmt.Errorf("release mapkit engine: %w", err)
	}
	return nil
}

func (r *Renderer) setTapHandler(fn domain.TapHandler) {
	r.tapMu.Lock()
	r.onTap = fn
	r.tapMu.Unlock()
}

func (r *Renderer) handleTap(c kml.Coordinate) {
	r.tapMu.RLock()
	fn := r.onTap
	r.tapMu.RUnlock()
	if fn != nil {
		fn(domain.GeoPoint{Lat: c.Lat, Lon: c.Lon})
	}
}

func draw(engine Engine, state domain.ViewState) error {
	scene := mapview.Describe(state)

	annotations := make([]Annotation, len(scene.Markers))
	for i, m := range scene.Markers {
		annotations[i] = Annotation{
			Identifier: m.ID,
			Coordinate: toCoordinate(m.Position),
			Title:      m.Title,
			Subtitle:   m.Description,
			TintColor:  m.Color,
			Kind:       string(m.Kind),
		}
	}
	if err := engine.SetAnnotations(annotations); err != nil {
		return fmt.Errorf("draw annotations: %w", err)
	}

	overlays := make([]Polyline, len(scene.GuideLines))
	for i, l := range scene.GuideLines {
		coords := make([]kml.Coordinate, len(l.Points))
		for j, p := range l.Points {
			coords[j] = toCoordinate(p)
		}
		overlays[i] = Polyline{
			Identifier:      l.ID,
			Coordinates:     coords,
			StrokeColor:     l.StrokeColor,
			LineWidth:       l.StrokeWidth,
			LineDashPattern: l.DashPattern,
			Title:           mapview.DistanceLabel(l),
		}
	}
	if err := engine.SetOverlays(overlays); err != nil {
		return fmt.Errorf("draw overlays: %w", err)
	}
	return nil
}

func toCoordinate(p domain.GeoPoint) kml.Coordinate {
	return kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
}

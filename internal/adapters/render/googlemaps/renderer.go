package googlemaps

import (
	"fmt"
	"io"
	"sync"

	"github.com/paulmach/orb"

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

// NewRenderer returns an unmounted renderer. A nil open uses OpenFeatureEngine.
func NewRenderer(open Opener, adapter mapview.Adapter) *Renderer {
	if open == nil {
		open = OpenFeatureEngine
	}
	return &Renderer{open: open, adapter: adapter, lifecycle: domain.LifecycleCreated}
}

func (r *Renderer) Provider() domain.Provider { return domain.ProviderGoogleMaps }

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
		return fmt.Errorf("open googlemaps engine: %w", err)
	}
	mounted := false
	defer func() {
		if !mounted {
			r.setTapHandler(nil)
			_ = engine.Release()
		}
	}()
	r.setTapHandler(state.OnTap)

	if err := engine.Configure(Options{
		MapType:               MapType,
		ShowsUserLocation:     true,
		ShowsMyLocationButton: true,
		ShowsCompass:          true,
	}); err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}
	engine.OnMapPress(r.handlePress)

	vp := r.adapter.InitialViewport(state)
	if err := engine.MoveCamera(CameraPosition{
		Target:         toPoint(vp.Center),
		LatitudeDelta:  vp.LatitudeDelta,
		LongitudeDelta: vp.LongitudeDelta,
	}); err != nil {
		return fmt.Errorf("set initial camera: %w", err)
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
		return fmt.Errorf("release googlemaps engine: %w", err)
	}
	return nil
}

func (r *Renderer) setTapHandler(fn domain.TapHandler) {
	r.tapMu.Lock()
	r.onTap = fn
	r.tapMu.Unlock()
}

func (r *Renderer) handlePress(p orb.Point) {
	r.tapMu.RLock()
	fn := r.onTap
	r.tapMu.RUnlock()
	if fn != nil {
		fn(domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()})
	}
}

func draw(engine Engine, state domain.ViewState) error {
	scene := mapview.Describe(state)

	markers := make([]Marker, len(scene.Markers))
	for i, m := range scene.Markers {
		markers[i] = Marker{
			Identifier: m.ID,
			Position:   toPoint(m.Position),
			Title:      m.Title,
			Snippet:    m.Description,
			PinColor:   m.Color,
			Kind:       string(m.Kind),
		}
	}
	if err := engine.SetMarkers(markers); err != nil {
		return fmt.Errorf("draw markers: %w", err)
	}

	lines := make([]Polyline, len(scene.GuideLines))
	for i, l := range scene.GuideLines {
		path := make(orb.LineString, len(l.Points))
		for j, p := range l.Points {
			path[j] = toPoint(p)
		}
		lines[i] = Polyline{
			Identifier:      l.ID,
			Path:            path,
			StrokeColor:     l.StrokeColor,
			StrokeWidth:     l.StrokeWidth,
			LineDashPattern: l.DashPattern,
			Tag:             mapview.DistanceLabel(l),
		}
	}
	if err := engine.SetPolylines(lines); err != nil {
		return fmt.Errorf("draw polylines: %w", err)
	}
	return nil
}

func toPoint(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

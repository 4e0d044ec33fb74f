package googlemaps

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
)

// ContentType is the media type written by FeatureEngine.Export.
const ContentType = "application/geo+json"

// DiffStats counts what the last Set call changed, by identifier.
type DiffStats struct {
	Added   int `json:"added"`
	Changed int `json:"changed"`
	Removed int `json:"removed"`
}

func (d DiffStats) add(o DiffStats) DiffStats {
	return DiffStats{Added: d.Added + o.Added, Changed: d.Changed + o.Changed, Removed: d.Removed + o.Removed}
}

// FeatureEngine is a headless Engine that keeps overlays in memory and
// exports them as a GeoJSON FeatureCollection.
type FeatureEngine struct {
	mu sync.Mutex

	released    bool
	opts        Options
	camera      CameraPosition
	cameraMoves int
	onPress     func(orb.Point)

	markers     map[string]Marker
	markerOrder []string
	lines       map[string]Polyline
	lineOrder   []string

	lastDiff DiffStats
}

// NewFeatureEngine returns an empty engine.
func NewFeatureEngine() *FeatureEngine {
	return &FeatureEngine{
		markers: make(map[string]Marker),
		lines:   make(map[string]Polyline),
	}
}

// OpenFeatureEngine is an Opener for FeatureEngine.
func OpenFeatureEngine() (Engine, error) {
	return NewFeatureEngine(), nil
}

func (e *FeatureEngine) Configure(opts Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.opts = opts
	return nil
}

func (e *FeatureEngine) MoveCamera(cam CameraPosition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.camera = cam
	e.cameraMoves++
	return nil
}

func (e *FeatureEngine) SetMarkers(markers []Marker) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	next := make(map[string]Marker, len(markers))
	order := make([]string, 0, len(markers))
	seen := make(map[string]int, len(markers))
	for _, m := range markers {
		m.Identifier = mapview.OccurrenceID(seen, m.Identifier)
		order = append(order, m.Identifier)
		next[m.Identifier] = m
	}
	stats := diff(e.markers, next, func(a, b Marker) bool { return a == b })
	e.markers, e.markerOrder = next, order
	e.lastDiff = stats
	return nil
}

func (e *FeatureEngine) SetPolylines(lines []Polyline) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	next := make(map[string]Polyline, len(lines))
	order := make([]string, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, l := range lines {
		l.Identifier = mapview.OccurrenceID(seen, l.Identifier)
		order = append(order, l.Identifier)
		next[l.Identifier] = l
	}
	stats := diff(e.lines, next, func(a, b Polyline) bool { return reflect.DeepEqual(a, b) })
	e.lines, e.lineOrder = next, order
	e.lastDiff = e.lastDiff.add(stats)
	return nil
}

func diff[T any](prev, next map[string]T, equal func(a, b T) bool) DiffStats {
	var s DiffStats
	for id, n := range next {
		p, ok := prev[id]
		switch {
		case !ok:
			s.Added++
		case !equal(p, n):
			s.Changed++
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			s.Removed++
		}
	}
	return s
}

func (e *FeatureEngine) OnMapPress(fn func(orb.Point)) {
	e.mu.Lock()
	e.onPress = fn
	e.mu.Unlock()
}

// DispatchPress expects a GeoJSON Point geometry.
func (e *FeatureEngine) DispatchPress(payload []byte) error {
	g, err := geojson.UnmarshalGeometry(payload)
	if err != nil {
		return fmt.Errorf("%w: decode geometry: %v", domain.ErrInvalidPress, err)
	}
	p, ok := g.Geometry().(orb.Point)
	if !ok {
		return fmt.Errorf("%w: geometry must be a Point, got %s", domain.ErrInvalidPress, g.Type)
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return domain.ErrEngineReleased
	}
	fn := e.onPress
	e.mu.Unlock()

	// The listener runs unlocked so it may call back into the engine.
	if fn != nil {
		fn(p)
	}
	return nil
}

// Export writes the overlays as a FeatureCollection. Camera and options go in
// foreign members; polylines carry an encoded_polyline property.
func (e *FeatureEngine) Export(w io.Writer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return "", domain.ErrEngineReleased
	}

	fc := geojson.NewFeatureCollection()
	for _, id := range e.markerOrder {
		m := e.markers[id]
		f := geojson.NewFeature(m.Position)
		f.ID = m.Identifier
		f.Properties["kind"] = m.Kind
		f.Properties["title"] = m.Title
		if m.Snippet != "" {
			f.Properties["snippet"] = m.Snippet
		}
		f.Properties["pin_color"] = m.PinColor
		fc.Append(f)
	}
	for _, id := range e.lineOrder {
		l := e.lines[id]
		f := geojson.NewFeature(l.Path)
		f.ID = l.Identifier
		f.Properties["stroke_color"] = l.StrokeColor
		f.Properties["stroke_width"] = l.StrokeWidth
		f.Properties["dash_pattern"] = l.LineDashPattern
		f.Properties["encoded_polyline"] = EncodePath(l.Path)
		if l.Tag != "" {
			f.Properties["tag"] = l.Tag
		}
		fc.Append(f)
	}
	fc.ExtraMembers = geojson.Properties{
		"camera": map[string]any{
			"target":          []float64{e.camera.Target.Lon(), e.camera.Target.Lat()},
			"latitude_delta":  e.camera.LatitudeDelta,
			"longitude_delta": e.camera.LongitudeDelta,
		},
		"map_type": e.opts.MapType,
		"controls": map[string]bool{
			"user_location":      e.opts.ShowsUserLocation,
			"my_location_button": e.opts.ShowsMyLocationButton,
			"compass":            e.opts.ShowsCompass,
		},
	}

	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return "", fmt.Errorf("encode feature collection: %w", err)
	}
	return ContentType, nil
}

// Release drops all overlays. Further calls fail with ErrEngineReleased.
func (e *FeatureEngine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.released = true
	e.onPress = nil
	e.markers, e.markerOrder = nil, nil
	e.lines, e.lineOrder = nil, nil
	return nil
}

// Released reports whether Release has been called.
func (e *FeatureEngine) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

func (e *FeatureEngine) Camera() CameraPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}

// CameraMoves counts MoveCamera calls over the engine's life.
func (e *FeatureEngine) CameraMoves() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cameraMoves
}

func (e *FeatureEngine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// Markers returns the current markers in the order they were last set.
func (e *FeatureEngine) Markers() []Marker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Marker, 0, len(e.markerOrder))
	for _, id := range e.markerOrder {
		out = append(out, e.markers[id])
	}
	return out
}

func (e *FeatureEngine) Polylines() []Polyline {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Polyline, 0, len(e.lineOrder))
	for _, id := range e.lineOrder {
		out = append(out, e.lines[id])
	}
	return out
}

// LastDiff is the combined marker and polyline diff of the latest redraw.
func (e *FeatureEngine) LastDiff() DiffStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastDiff
}

// EncodePath encodes ls as a Google encoded polyline (lat, lng pairs).
func EncodePath(ls orb.LineString) string {
	coords := make([][]float64, len(ls))
	for i, p := range ls {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}

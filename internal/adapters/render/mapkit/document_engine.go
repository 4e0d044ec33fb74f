package mapkit

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/twpayne/go-kml"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
)

// ContentType is the media type written by DocumentEngine.Export.
const ContentType = "application/vnd.google-earth.kml+xml"

const metersPerDegreeLat = 111_320.0

// DocumentEngine is a headless Engine that keeps overlays keyed by
// identifier and exports them as a KML document.
type DocumentEngine struct {
	mu sync.Mutex

	released      bool
	cfg           Configuration
	region        Region
	regionChanges int
	onTap         func(kml.Coordinate)

	annotations []Annotation
	overlays    []Polyline
}

// NewDocumentEngine returns an empty engine.
func NewDocumentEngine() *DocumentEngine {
	return &DocumentEngine{}
}

// OpenDocumentEngine is an Opener for DocumentEngine.
func OpenDocumentEngine() (Engine, error) {
	return NewDocumentEngine(), nil
}

func (e *DocumentEngine) Configure(cfg Configuration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.cfg = cfg
	return nil
}

func (e *DocumentEngine) SetRegion(region Region) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.region = region
	e.regionChanges++
	return nil
}

// SetAnnotations replaces the annotation set. A repeated identifier is kept
// as its own annotation under an occurrence suffix.
func (e *DocumentEngine) SetAnnotations(annotations []Annotation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	seen := make(map[string]int, len(annotations))
	out := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		a.Identifier = mapview.OccurrenceID(seen, a.Identifier)
		out = append(out, a)
	}
	e.annotations = out
	return nil
}

func (e *DocumentEngine) SetOverlays(lines []Polyline) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	seen := make(map[string]int, len(lines))
	out := make([]Polyline, 0, len(lines))
	for _, l := range lines {
		l.Identifier = mapview.OccurrenceID(seen, l.Identifier)
		l.Coordinates = append([]kml.Coordinate(nil), l.Coordinates...)
		out = append(out, l)
	}
	e.overlays = out
	return nil
}

func (e *DocumentEngine) OnTap(fn func(kml.Coordinate)) {
	e.mu.Lock()
	e.onTap = fn
	e.mu.Unlock()
}

// DispatchPress expects a KML coordinate tuple "lon,lat[,alt]".
func (e *DocumentEngine) DispatchPress(payload []byte) error {
	c, err := ParseCoordinate(string(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPress, err)
	}

	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return domain.ErrEngineReleased
	}
	fn := e.onTap
	e.mu.Unlock()

	if fn != nil {
		fn(c)
	}
	return nil
}

// ParseCoordinate parses a single KML coordinate tuple. Values are not range
// checked.
func ParseCoordinate(s string) (kml.Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 || len(parts) > 3 {
		return kml.Coordinate{}, fmt.Errorf("coordinate %q: want lon,lat[,alt]", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return kml.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
		}
		vals[i] = v
	}
	return kml.Coordinate{Lon: vals[0], Lat: vals[1], Alt: vals[2]}, nil
}

// Export writes a KML document: a LookAt for the region, one shared pin style
// per colour, a line style per overlay and a placemark per overlay.
func (e *DocumentEngine) Export(w io.Writer) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return "", domain.ErrEngineReleased
	}

	doc := kml.Document(
		kml.Name("course map"),
		kml.LookAt(
			kml.Longitude(e.region.Center.Lon),
			kml.Latitude(e.region.Center.Lat),
			kml.Range(lookAtRange(e.region)),
		),
		extendedData(
			"map_type", e.cfg.MapType,
			"shows_user_location", strconv.FormatBool(e.cfg.ShowsUserLocation),
			"shows_user_tracking_button", strconv.FormatBool(e.cfg.ShowsUserTrackingButton),
			"shows_compass", strconv.FormatBool(e.cfg.ShowsCompass),
		),
	)

	pinStyles := make(map[string]*kml.SharedElement)
	for _, a := range e.annotations {
		if _, ok := pinStyles[a.TintColor]; ok {
			continue
		}
		c, _ := ResolveColor(a.TintColor)
		s := kml.SharedStyle(pinStyleID(a.TintColor), kml.IconStyle(kml.Color(c)))
		pinStyles[a.TintColor] = s
		doc.Add(s)
	}

	for _, a := range e.annotations {
		pm := kml.Placemark(
			kml.Name(a.Title),
			kml.StyleURL(pinStyles[a.TintColor].URL()),
			kml.Point(kml.Coordinates(a.Coordinate)),
			extendedData("identifier", a.Identifier, "kind", a.Kind),
		)
		if a.Subtitle != "" {
			pm.Add(kml.Description(a.Subtitle))
		}
		doc.Add(pm)
	}

	for _, l := range e.overlays {
		c, _ := ResolveColor(l.StrokeColor)
		style := kml.SharedStyle(l.Identifier+"-style", kml.LineStyle(kml.Color(c), kml.Width(l.LineWidth)))
		doc.Add(style)
		pm := kml.Placemark(
			kml.Name(l.Title),
			kml.StyleURL(style.URL()),
			kml.LineString(kml.Tessellate(true), kml.Coordinates(l.Coordinates...)),
			extendedData("identifier", l.Identifier, "dash_pattern", formatDash(l.LineDashPattern)),
		)
		doc.Add(pm)
	}

	if err := kml.KML(doc).WriteIndent(w, "", "  "); err != nil {
		return "", fmt.Errorf("write kml: %w", err)
	}
	return ContentType, nil
}

// Release drops all overlays. Further calls fail with ErrEngineReleased.
func (e *DocumentEngine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return domain.ErrEngineReleased
	}
	e.released = true
	e.onTap = nil
	e.annotations, e.overlays = nil, nil
	return nil
}

func (e *DocumentEngine) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

func (e *DocumentEngine) Region() Region {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.region
}

// RegionChanges counts SetRegion calls over the engine's life.
func (e *DocumentEngine) RegionChanges() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regionChanges
}

func (e *DocumentEngine) Configuration() Configuration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *DocumentEngine) Annotations() []Annotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Annotation(nil), e.annotations...)
}

func (e *DocumentEngine) Overlays() []Polyline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Polyline(nil), e.overlays...)
}

// lookAtRange approximates the eye distance that shows the region's span.
func lookAtRange(r Region) float64 {
	span := math.Max(r.LatitudeDelta, r.LongitudeDelta*math.Cos(r.Center.Lat*math.Pi/180))
	return span * metersPerDegreeLat
}

func pinStyleID(tint string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, strings.ToLower(tint))
	if id == "" {
		id = "default"
	}
	return "pin-" + id
}

// extendedData builds an untyped SchemaData block from name/value pairs.
func extendedData(pairs ...string) *kml.CompoundElement {
	fields := make([]kml.Element, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, kml.SimpleData(pairs[i], pairs[i+1]))
	}
	return kml.ExtendedData(kml.SchemaData("", fields...))
}

func formatDash(pattern []float64) string {
	parts := make([]string, len(pattern))
	for i, v := range pattern {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Package googlemaps renders course overlays on a Google Maps style engine.
// Coordinates are orb.Point values in (lon, lat) order.
package googlemaps

import (
	"io"

	"github.com/paulmach/orb"
)

// MapType is the map theme used by this provider.
const MapType = "roadmap"

// CameraPosition is the engine's camera: a centre plus a span in degrees.
type CameraPosition struct {
	Target         orb.Point
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Marker is a native point overlay.
type Marker struct {
	Identifier string
	Position   orb.Point
	Title      string
	Snippet    string
	PinColor   string
	Kind       string
}

// Polyline is a native line overlay.
type Polyline struct {
	Identifier      string
	Path            orb.LineString
	StrokeColor     string
	StrokeWidth     float64
	LineDashPattern []float64
	Tag             string
}

// Options are the engine controls configured at mount.
type Options struct {
	MapType               string
	ShowsUserLocation     bool
	ShowsMyLocationButton bool
	ShowsCompass          bool
}

// Engine is the native map surface. Implementations are owned by exactly one
// Renderer and are not safe for concurrent use.
type Engine interface {
	Configure(opts Options) error
	MoveCamera(cam CameraPosition) error
	SetMarkers(markers []Marker) error
	SetPolylines(lines []Polyline) error
	// OnMapPress registers the single press listener, replacing any previous one.
	OnMapPress(fn func(orb.Point))
	// DispatchPress decodes a native press payload and fires the listener.
	DispatchPress(payload []byte) error
	Export(w io.Writer) (string, error)
	Release() error
}

// Opener acquires a fresh engine.
type Opener func() (Engine, error)

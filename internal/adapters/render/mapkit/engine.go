// Package mapkit renders course overlays on a MapKit style engine.
// Coordinates are kml.Coordinate values (Lon, Lat, Alt).
package mapkit

import (
	"io"

	"github.com/twpayne/go-kml"
)

// MapType is the map theme used by this provider.
const MapType = "standard"

// Region is the visible area: a centre plus a span in degrees.
type Region struct {
	Center         kml.Coordinate
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Annotation is a native point overlay.
type Annotation struct {
	Identifier string
	Coordinate kml.Coordinate
	Title      string
	Subtitle   string
	TintColor  string
	Kind       string
}

// Polyline is a native line overlay.
type Polyline struct {
	Identifier      string
	Coordinates     []kml.Coordinate
	StrokeColor     string
	LineWidth       float64
	LineDashPattern []float64
	Title           string
}

// Configuration holds the controls set at mount.
type Configuration struct {
	MapType                 string
	ShowsUserLocation       bool
	ShowsUserTrackingButton bool
	ShowsCompass            bool
}

// Engine is the native map surface, owned by exactly one Renderer.
type Engine interface {
	Configure(cfg Configuration) error
	SetRegion(region Region) error
	SetAnnotations(annotations []Annotation) error
	SetOverlays(lines []Polyline) error
	// OnTap registers the single tap listener, replacing any previous one.
	OnTap(fn func(kml.Coordinate))
	// DispatchPress decodes a native press payload and fires the listener.
	DispatchPress(payload []byte) error
	Export(w io.Writer) (string, error)
	Release() error
}

// Opener acquires a fresh engine.
type Opener func() (Engine, error)

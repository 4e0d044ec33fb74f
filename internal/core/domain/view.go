package domain

// Platform is the host platform identity reported by the client shell
// (e.g. "ios", "android", "windows").
type Platform string

// PlatformIOS is the one identity routed to the MapKit backend.
const PlatformIOS Platform = "ios"

// Provider names a backend renderer.
type Provider string

const (
	ProviderGoogleMaps Provider = "googlemaps"
	ProviderMapKit     Provider = "mapkit"
)

// Lifecycle is a renderer's position in its created → mounted → unmounted life.
type Lifecycle string

const (
	LifecycleCreated   Lifecycle = "created"
	LifecycleMounted   Lifecycle = "mounted"
	LifecycleUnmounted Lifecycle = "unmounted"
)

// TapHandler receives map presses in domain coordinates.
type TapHandler func(GeoPoint)

// MapProps is the platform-independent input supplied by the application shell.
type MapProps struct {
	Holes              []Hole
	UserLocation       GeoPoint
	SelectedHoleNumber *int
	ShowGuideLine      bool
	InitialViewport    *Viewport
	OnTap              TapHandler
}

// ViewState is what every backend renderer draws from. GuideLineTarget is
// derived from the selection and is nil when no line should be drawn.
type ViewState struct {
	Holes           []Hole
	UserLocation    GeoPoint
	ShowGuideLine   bool
	GuideLineTarget *GeoPoint
	InitialViewport *Viewport
	OnTap           TapHandler
}

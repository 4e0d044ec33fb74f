package domain

// MarkerKind distinguishes the three kinds of point overlays.
type MarkerKind string

const (
	MarkerUser MarkerKind = "user"
	MarkerHole MarkerKind = "hole"
	MarkerTee  MarkerKind = "tee"
)

// Marker is a backend-agnostic point overlay. ID is stable across updates so
// engines can diff.
type Marker struct {
	ID          string     `json:"id"`
	Kind        MarkerKind `json:"kind"`
	Position    GeoPoint   `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Color       string     `json:"color"`
}

// GuideLine is the dashed two-point line from the user to the selected green.
type GuideLine struct {
	ID             string     `json:"id"`
	Points         []GeoPoint `json:"points"`
	StrokeColor    string     `json:"stroke_color"`
	StrokeWidth    float64    `json:"stroke_width"`
	DashPattern    []float64  `json:"dash_pattern"`
	DistanceMeters float64    `json:"distance_meters"`
}

// Scene is the full overlay description for one ViewState.
type Scene struct {
	Markers    []Marker    `json:"markers"`
	GuideLines []GuideLine `json:"guide_lines"`
}

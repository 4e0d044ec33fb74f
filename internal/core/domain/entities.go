package domain

import (
	"time"
)

// Course represents a golf course with its ordered holes.
type Course struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Holes     []Hole    `json:"holes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Hole is one point of interest: a green centre and the tee boxes that play to it.
// Number is expected to be unique within a round but this is not enforced.
type Hole struct {
	Number      int      `json:"number"`
	GreenCenter GeoPoint `json:"green_center"`
	TeeBoxes    []TeeBox `json:"tee_boxes"`
	Par         *int     `json:"par,omitempty"`
	Handicap    *int     `json:"handicap,omitempty"`
}

// TeeBox is a single tee location. Name and Color are optional display hints
// (e.g. "Championship", "black"); empty means absent.
type TeeBox struct {
	Location GeoPoint `json:"location"`
	Name     string   `json:"name,omitempty"`
	Color    string   `json:"color,omitempty"`
}

// TapEvent is a map press translated back into domain coordinates.
type TapEvent struct {
	SessionID string    `json:"session_id"`
	CourseID  string    `json:"course_id,omitempty"`
	Provider  Provider  `json:"provider"`
	Point     GeoPoint  `json:"point"`
	At        time.Time `json:"at"`
}

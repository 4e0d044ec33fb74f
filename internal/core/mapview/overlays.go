package mapview

import (
	"fmt"

	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/pkg/geospatial"
)

// Reference styling shared by both backends.
const (
	UserMarkerID    = "user-location"
	UserMarkerTitle = "You"
	UserColor       = "blue"
	HoleColor       = "green"
	DefaultTeeColor = "orange"

	GuideLineID    = "guide-line"
	GuideLineColor = "#FF6B6B"
	GuideLineWidth = 3
)

// GuideLineDash alternates 10 units drawn, 5 units gap.
var GuideLineDash = []float64{10, 5}

// Describe enumerates the full overlay set for state: the user marker, one
// marker per hole, one per tee box, and the guide line when shown and
// resolvable.
func Describe(state domain.ViewState) domain.Scene {
	scene := domain.Scene{
		Markers: make([]domain.Marker, 0, MarkerCount(state.Holes)),
	}
	scene.Markers = append(scene.Markers, UserMarker(state.UserLocation))
	for _, h := range state.Holes {
		scene.Markers = append(scene.Markers, HoleMarker(h))
	}
	for _, h := range state.Holes {
		for i, tee := range h.TeeBoxes {
			scene.Markers = append(scene.Markers, TeeMarker(h.Number, i, tee))
		}
	}
	if line, ok := GuideLine(state); ok {
		scene.GuideLines = []domain.GuideLine{line}
	}
	return scene
}

// MarkerCount is 1 (user) + holes + tee boxes.
func MarkerCount(holes []domain.Hole) int {
	n := 1 + len(holes)
	for _, h := range holes {
		n += len(h.TeeBoxes)
	}
	return n
}

// UserMarker is the distinguished marker at the user's location.
func UserMarker(at domain.GeoPoint) domain.Marker {
	return domain.Marker{
		ID:       UserMarkerID,
		Kind:     domain.MarkerUser,
		Position: at,
		Title:    UserMarkerTitle,
		Color:    UserColor,
	}
}

// HoleMarker marks a hole's green centre.
func HoleMarker(h domain.Hole) domain.Marker {
	return domain.Marker{
		ID:          HoleMarkerID(h.Number),
		Kind:        domain.MarkerHole,
		Position:    h.GreenCenter,
		Title:       fmt.Sprintf("Hole %d", h.Number),
		Description: HoleDescription(h),
		Color:       HoleColor,
	}
}

// TeeMarker marks tee box index (0-based) of hole number.
func TeeMarker(number, index int, tee domain.TeeBox) domain.Marker {
	return domain.Marker{
		ID:          TeeMarkerID(number, index),
		Kind:        domain.MarkerTee,
		Position:    tee.Location,
		Title:       fmt.Sprintf("Hole %d Tee", number),
		Description: TeeLabel(index, tee),
		Color:       TeeColor(tee),
	}
}

func HoleMarkerID(number int) string {
	return fmt.Sprintf("hole-%d", number)
}

func TeeMarkerID(number, index int) string {
	return fmt.Sprintf("hole-%d-tee-%d", number, index)
}

// OccurrenceID returns id the first time seen records it and id#n for its
// n-th occurrence after that. Engines keyed by identifier use it so repeated
// hole numbers still get one overlay each.
func OccurrenceID(seen map[string]int, id string) string {
	seen[id]++
	if n := seen[id]; n > 1 {
		return fmt.Sprintf("%s#%d", id, n)
	}
	return id
}

// HoleDescription is "Par N" when par is known, empty otherwise. A zero par
// counts as unknown.
func HoleDescription(h domain.Hole) string {
	if h.Par == nil || *h.Par == 0 {
		return ""
	}
	return fmt.Sprintf("Par %d", *h.Par)
}

// TeeLabel is the tee's name, falling back to its 1-indexed position.
func TeeLabel(index int, tee domain.TeeBox) string {
	if tee.Name != "" {
		return tee.Name
	}
	return fmt.Sprintf("Tee %d", index+1)
}

// TeeColor is the tee's declared colour, falling back to DefaultTeeColor.
func TeeColor(tee domain.TeeBox) string {
	if tee.Color != "" {
		return tee.Color
	}
	return DefaultTeeColor
}

// GuideLine returns the user→target line when state asks for one and the
// target resolved.
func GuideLine(state domain.ViewState) (domain.GuideLine, bool) {
	if !state.ShowGuideLine || state.GuideLineTarget == nil {
		return domain.GuideLine{}, false
	}
	target := *state.GuideLineTarget
	return domain.GuideLine{
		ID:             GuideLineID,
		Points:         []domain.GeoPoint{state.UserLocation, target},
		StrokeColor:    GuideLineColor,
		StrokeWidth:    GuideLineWidth,
		DashPattern:    append([]float64(nil), GuideLineDash...),
		DistanceMeters: geospatial.Distance(state.UserLocation, target),
	}, true
}

// DistanceLabel renders a guide line's length as whole yards.
func DistanceLabel(line domain.GuideLine) string {
	return fmt.Sprintf("%.0f yds", geospatial.MetersToYards(line.DistanceMeters))
}

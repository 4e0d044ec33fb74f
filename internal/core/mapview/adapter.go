package mapview

import "github.com/samirrijal/greenside/internal/core/domain"

// DefaultSpan is the latitude/longitude span of the default viewport,
// roughly a kilometre across.
const DefaultSpan = 0.01

// ResolveGuideLineTarget returns the green centre of the selected hole, or nil
// when no guide line should be drawn. Duplicate hole numbers resolve to the
// first match in sequence order. The user location is the line's other end
// and never affects the result.
func ResolveGuideLineTarget(holes []domain.Hole, _ domain.GeoPoint, selected *int, show bool) *domain.GeoPoint {
	if !show || selected == nil {
		return nil
	}
	for i := range holes {
		if holes[i].Number == *selected {
			target := holes[i].GreenCenter
			return &target
		}
	}
	return nil
}

// DefaultViewport centres the camera on the user with DefaultSpan.
func DefaultViewport(user domain.GeoPoint) domain.Viewport {
	return viewportAround(user, DefaultSpan)
}

func viewportAround(p domain.GeoPoint, span float64) domain.Viewport {
	return domain.Viewport{Center: p, LatitudeDelta: span, LongitudeDelta: span}
}

// Adapter turns MapProps into a ViewState. Span overrides DefaultSpan when
// positive.
type Adapter struct {
	Span float64
}

// ViewState derives the renderer input for props.
func (a Adapter) ViewState(props domain.MapProps) domain.ViewState {
	return domain.ViewState{
		Holes:           props.Holes,
		UserLocation:    props.UserLocation,
		ShowGuideLine:   props.ShowGuideLine,
		GuideLineTarget: ResolveGuideLineTarget(props.Holes, props.UserLocation, props.SelectedHoleNumber, props.ShowGuideLine),
		InitialViewport: props.InitialViewport,
		OnTap:           props.OnTap,
	}
}

// InitialViewport is the explicit viewport when one was supplied, otherwise
// the default one around the user.
func (a Adapter) InitialViewport(state domain.ViewState) domain.Viewport {
	if state.InitialViewport != nil {
		return *state.InitialViewport
	}
	if a.Span > 0 {
		return viewportAround(state.UserLocation, a.Span)
	}
	return DefaultViewport(state.UserLocation)
}

// InitialViewport resolves the mount camera with the default span.
func InitialViewport(state domain.ViewState) domain.Viewport {
	return Adapter{}.InitialViewport(state)
}

package render_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/greenside/internal/adapters/render"
	"github.com/samirrijal/greenside/internal/adapters/render/googlemaps"
	"github.com/samirrijal/greenside/internal/adapters/render/mapkit"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
)

func TestProviderFor(t *testing.T) {
	tests := []struct {
		platform domain.Platform
		want     domain.Provider
	}{
		{"ios", domain.ProviderMapKit},
		{"IOS", domain.ProviderMapKit},
		{" ios\n", domain.ProviderMapKit},
		{"android", domain.ProviderGoogleMaps},
		{"web", domain.ProviderGoogleMaps},
		{"windows", domain.ProviderGoogleMaps},
		{"macos", domain.ProviderGoogleMaps},
		{"", domain.ProviderGoogleMaps},
		{"ios-simulator", domain.ProviderGoogleMaps},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			assert.Equal(t, tt.want, render.ProviderFor(tt.platform))
		})
	}
}

func TestSelect_ReturnsFreshRenderers(t *testing.T) {
	a := render.Select("android", render.Engines{}, mapview.Adapter{})
	b := render.Select("android", render.Engines{}, mapview.Adapter{})

	assert.IsType(t, &googlemaps.Renderer{}, a)
	assert.NotSame(t, a, b)
	assert.Equal(t, domain.LifecycleCreated, a.Lifecycle())

	assert.IsType(t, &mapkit.Renderer{}, render.Select("ios", render.Engines{}, mapview.Adapter{}))
}

func TestSelect_UsesConfiguredOpener(t *testing.T) {
	var opened int
	engines := render.Engines{
		MapKit: func() (mapkit.Engine, error) {
			opened++
			return mapkit.NewDocumentEngine(), nil
		},
	}
	r := render.Select("ios", engines, mapview.Adapter{})
	require.NoError(t, r.Mount(domain.ViewState{}))
	assert.Equal(t, 1, opened)
}

// Same props through either backend yield the same overlay identifiers.
func TestSelect_BackendParity(t *testing.T) {
	par, selected := 4, 1
	props := domain.MapProps{
		Holes: []domain.Hole{{
			Number:      1,
			GreenCenter: domain.GeoPoint{Lat: 1, Lon: 1},
			Par:         &par,
			TeeBoxes:    []domain.TeeBox{{Location: domain.GeoPoint{Lat: 0.5, Lon: 0.5}}},
		}},
		SelectedHoleNumber: &selected,
		ShowGuideLine:      true,
	}
	var taps []domain.GeoPoint
	props.OnTap = func(p domain.GeoPoint) { taps = append(taps, p) }
	state := mapview.Adapter{}.ViewState(props)

	gm, mk, engines := parityEngines()
	gmR := render.Select("android", engines, mapview.Adapter{})
	mkR := render.Select("ios", engines, mapview.Adapter{})
	require.NoError(t, gmR.Mount(state))
	require.NoError(t, mkR.Mount(state))

	var gmIDs, mkIDs []string
	for _, m := range gm.Markers() {
		gmIDs = append(gmIDs, m.Identifier)
	}
	for _, a := range mk.Annotations() {
		mkIDs = append(mkIDs, a.Identifier)
	}
	assert.Equal(t, []string{"user-location", "hole-1", "hole-1-tee-0"}, gmIDs)
	assert.Equal(t, gmIDs, mkIDs)
	assert.Len(t, gm.Polylines(), 1)
	assert.Len(t, mk.Overlays(), 1)

	// Taps translate identically and without range checks.
	for _, p := range []domain.GeoPoint{{Lat: 43.26, Lon: -2.93}, {Lat: 95, Lon: 200}} {
		taps = nil
		require.NoError(t, gmR.DispatchPress([]byte(fmt.Sprintf(`{"type":"Point","coordinates":[%g,%g]}`, p.Lon, p.Lat))))
		require.NoError(t, mkR.DispatchPress([]byte(fmt.Sprintf("%g,%g", p.Lon, p.Lat))))
		assert.Equal(t, []domain.GeoPoint{p, p}, taps)
	}
}

func TestSelect_RepeatedHoleNumbersKeepEveryMarker(t *testing.T) {
	holes := []domain.Hole{
		{Number: 7, GreenCenter: domain.GeoPoint{Lat: 1, Lon: 1}},
		{Number: 7, GreenCenter: domain.GeoPoint{Lat: 2, Lon: 2}},
	}
	state := mapview.Adapter{}.ViewState(domain.MapProps{Holes: holes})

	gm, mk, engines := parityEngines()
	require.NoError(t, render.Select("android", engines, mapview.Adapter{}).Mount(state))
	require.NoError(t, render.Select("ios", engines, mapview.Adapter{}).Mount(state))

	want := mapview.MarkerCount(holes)
	assert.Len(t, gm.Markers(), want)
	assert.Len(t, mk.Annotations(), want)
	assert.Equal(t, "hole-7#2", gm.Markers()[2].Identifier)
	assert.Equal(t, "hole-7#2", mk.Annotations()[2].Identifier)
}

func parityEngines() (*googlemaps.FeatureEngine, *mapkit.DocumentEngine, render.Engines) {
	gm := googlemaps.NewFeatureEngine()
	mk := mapkit.NewDocumentEngine()
	return gm, mk, render.Engines{
		GoogleMaps: func() (googlemaps.Engine, error) { return gm, nil },
		MapKit:     func() (mapkit.Engine, error) { return mk, nil },
	}
}

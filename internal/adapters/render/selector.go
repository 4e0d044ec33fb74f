// Package render picks the backend renderer for a host platform.
package render

import (
	"strings"

	"github.com/samirrijal/greenside/internal/adapters/render/googlemaps"
	"github.com/samirrijal/greenside/internal/adapters/render/mapkit"
	"github.com/samirrijal/greenside/internal/core/domain"
	"github.com/samirrijal/greenside/internal/core/mapview"
	"github.com/samirrijal/greenside/internal/core/ports"
)

// Engines holds one engine opener per provider. Nil fields fall back to the
// headless engines.
type Engines struct {
	GoogleMaps googlemaps.Opener
	MapKit     mapkit.Opener
}

// ProviderFor maps a platform identity to its provider. Only "ios" selects
// MapKit; everything else, including empty or unknown identities, gets
// Google Maps.
func ProviderFor(platform domain.Platform) domain.Provider {
	if strings.EqualFold(strings.TrimSpace(string(platform)), string(domain.PlatformIOS)) {
		return domain.ProviderMapKit
	}
	return domain.ProviderGoogleMaps
}

// Select returns a fresh, unmounted renderer for platform.
func Select(platform domain.Platform, engines Engines, adapter mapview.Adapter) ports.MapRenderer {
	if ProviderFor(platform) == domain.ProviderMapKit {
		return mapkit.NewRenderer(engines.MapKit, adapter)
	}
	return googlemaps.NewRenderer(engines.GoogleMaps, adapter)
}

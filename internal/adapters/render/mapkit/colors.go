package mapkit

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// fallbackColor is used for names that are neither SVG colour names nor hex.
var fallbackColor = colornames.Gray

// ResolveColor maps an SVG colour name ("green", "orange") or a "#RRGGBB"
// string to an opaque colour. ok is false when the fallback was used.
func ResolveColor(name string) (c color.RGBA, ok bool) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		if c, err := parseHex(name[1:]); err == nil {
			return c, true
		}
		return fallbackColor, false
	}
	if c, found := colornames.Map[strings.ToLower(name)]; found {
		return c, true
	}
	return fallbackColor, false
}

func parseHex(s string) (color.RGBA, error) {
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("hex colour %q: want 6 digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("hex colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

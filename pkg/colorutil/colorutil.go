// Package colorutil provides shared color utilities for the cutout editor.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Common colors used for overlays and default backgrounds.
var (
	Black       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Accent      = color.NRGBA{R: 0x00, G: 0x7A, B: 0xCC, A: 255} // preview overlay tint
	PointAdd    = color.NRGBA{R: 0x3F, G: 0xB9, B: 0x50, A: 255} // positive prompt marker
	PointRemove = color.NRGBA{R: 0xD4, G: 0x54, B: 0x43, A: 255} // negative prompt marker
)

// ParseHex parses a "#RRGGBB" or "RRGGBB" string into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// ToHex formats a color as "#RRGGBB", discarding alpha.
func ToHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Luminance returns the perceived brightness of a color in 0-255.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// ContrastText returns black or white, whichever reads better on the
// given background color.
func ContrastText(bg color.Color) color.NRGBA {
	if Luminance(bg) > 128 {
		return Black
	}
	return White
}

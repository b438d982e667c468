package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinContrastRatio is the WCAG AA threshold for normal body text.
const MinContrastRatio = 4.5

// Color is an opaque sRGB colour.
type Color struct {
	R, G, B uint8
}

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q: expected #rgb or #rrggbb", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// String returns the "#rrggbb" form
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RelativeLuminance returns the WCAG relative luminance in [0, 1].
func (c Color) RelativeLuminance() float64 {
	channel := func(v uint8) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	return 0.2126*channel(c.R) + 0.7152*channel(c.G) + 0.0722*channel(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colours, in [1, 21].
// The result does not depend on argument order.
func ContrastRatio(a, b Color) float64 {
	la, lb := a.RelativeLuminance(), b.RelativeLuminance()
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

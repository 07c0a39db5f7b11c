package color

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an sRGB color with straight (non-premultiplied) alpha.
// Every component is in the range [0, 1]. The zero value is transparent black.
type Color struct {
	R, G, B, A float64
}

// Common colors.
var (
	// White is the canvas color browsers paint when no element sets a background.
	White = Color{R: 1, G: 1, B: 1, A: 1}

	// Black is opaque black.
	Black = Color{A: 1}

	// Transparent is the computed value of background-color when nothing is painted.
	Transparent = Color{}
)

// RGB creates an opaque color from 8-bit channel values.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: 1,
	}
}

// fromColorful converts a go-colorful color into an opaque Color.
func fromColorful(c colorful.Color) Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: 1}
}

// Luminosity returns the WCAG 2.1 relative luminance of the color in [0, 1].
// Alpha is ignored: luminance describes the RGB channels only.
func (c Color) Luminosity() float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// linearize converts a gamma-encoded sRGB channel into linear light.
// WCAG 2.x specifies 0.03928 as the threshold; go-colorful uses the IEC value
// 0.04045, so the conversion is done here to match published ratios exactly.
func linearize(channel float64) float64 {
	if channel <= 0.03928 {
		return channel / 12.92
	}
	return math.Pow((channel+0.055)/1.055, 2.4)
}

// WithAlpha returns a copy of the color with the given alpha, clamped to [0, 1].
func (c Color) WithAlpha(a float64) Color {
	c.A = clamp01(a)
	return c
}

// Over composites the color onto an opaque backdrop and returns the opaque result.
// Each channel is a·fg + (1-a)·bg.
func (c Color) Over(backdrop Color) Color {
	a := clamp01(c.A)
	return Color{
		R: a*c.R + (1-a)*backdrop.R,
		G: a*c.G + (1-a)*backdrop.G,
		B: a*c.B + (1-a)*backdrop.B,
		A: 1,
	}
}

// IsTransparent reports whether the color paints nothing.
func (c Color) IsTransparent() bool {
	return c.A <= 0
}

// IsOpaque reports whether the color fully covers what is behind it.
func (c Color) IsOpaque() bool {
	return c.A >= 1
}

// RGB255 returns the channels as 8-bit values.
func (c Color) RGB255() (r, g, b uint8) {
	return to255(c.R), to255(c.G), to255(c.B)
}

// Hex returns the color as "#rrggbb", ignoring alpha.
func (c Color) Hex() string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// String returns the CSS serialization browsers use for computed colors:
// "rgb(r, g, b)" when opaque and "rgba(r, g, b, a)" otherwise.
func (c Color) String() string {
	r, g, b := c.RGB255()
	if c.IsOpaque() {
		return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatAlpha(c.A))
}

// MarshalJSON encodes the color as its CSS string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a CSS color string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func formatAlpha(a float64) string {
	return strconv.FormatFloat(math.Round(clamp01(a)*1000)/1000, 'f', -1, 64)
}

func to255(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

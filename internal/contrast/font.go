package contrast

import (
	"math"
	"strconv"
	"strings"
)

// Defaults used when a computed font value is missing or unrecognized.
const (
	DefaultFontSizePx = 16.0
	DefaultFontWeight = 400.0
)

// absoluteSizes maps CSS absolute-size keywords to pixels at the default
// medium size.
var absoluteSizes = map[string]float64{
	"xx-small":  9,
	"x-small":   10,
	"small":     13,
	"medium":    16,
	"large":     18,
	"x-large":   24,
	"xx-large":  32,
	"xxx-large": 48,
}

// ParseFontSize converts a CSS font-size value into pixels.
// Relative units (em, %) and relative keywords resolve against parentPx;
// rem resolves against the default size. A non-positive parentPx is treated
// as the default. Unrecognized values yield DefaultFontSizePx.
func ParseFontSize(value string, parentPx float64) float64 {
	if parentPx <= 0 {
		parentPx = DefaultFontSizePx
	}
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return DefaultFontSizePx
	}
	if px, ok := absoluteSizes[v]; ok {
		return px
	}

	switch v {
	case "larger":
		return parentPx * 1.2
	case "smaller":
		return parentPx / 1.2
	case "inherit":
		return parentPx
	}

	units := []struct {
		suffix string
		factor float64
	}{
		{"rem", DefaultFontSizePx},
		{"px", 1},
		{"pt", 96.0 / 72.0},
		{"pc", 16},
		{"em", parentPx},
		{"%", parentPx / 100},
	}
	for _, u := range units {
		if num, ok := strings.CutSuffix(v, u.suffix); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil || n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
				return DefaultFontSizePx
			}
			return n * u.factor
		}
	}

	// A unitless zero is the only valid unitless length.
	if v == "0" {
		return 0
	}
	return DefaultFontSizePx
}

// ParseFontWeight converts a CSS font-weight value into its numeric weight.
// Browsers report computed weights as numbers; the keywords are accepted for
// declared styles. bolder and lighter are approximated as bold and thin.
func ParseFontWeight(value string) float64 {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "normal":
		return DefaultFontWeight
	case "bold", "bolder":
		return BoldWeight
	case "lighter":
		return 100
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 1 || n > 1000 {
		return DefaultFontWeight
	}
	return n
}

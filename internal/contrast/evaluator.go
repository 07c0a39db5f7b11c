package contrast

import (
	"math"

	"github.com/nao1215/contrastscan/internal/color"
)

// Contrast ratio bounds and WCAG thresholds.
const (
	// MinRatio is the ratio of a color against itself. It is also the
	// conservative result when a color could not be determined.
	MinRatio = 1.0
	// MaxRatio is the ratio of black against white.
	MaxRatio = 21.0

	// AANormal is the minimum AA ratio for normal text.
	AANormal = 4.5
	// AALarge is the minimum AA ratio for large text.
	AALarge = 3.0
	// AAANormal is the minimum AAA ratio for normal text.
	AAANormal = 7.0
	// AAALarge is the minimum AAA ratio for large text.
	AAALarge = 4.5

	// LargeTextPx is the font size from which any text counts as large (14pt).
	LargeTextPx = 18.66
	// LargeBoldTextPx is the font size from which bold text counts as large (10.5pt).
	LargeBoldTextPx = 14.0
	// BoldWeight is the minimum font weight considered bold.
	BoldWeight = 700.0
)

// Level is the highest WCAG level a contrast result satisfies.
type Level string

const (
	// LevelAAA means the enhanced threshold is met.
	LevelAAA Level = "AAA"
	// LevelAA means only the minimum threshold is met.
	LevelAA Level = "AA"
	// LevelFail means neither threshold is met.
	LevelFail Level = "FAIL"
)

// Input holds what is known about one piece of text.
type Input struct {
	Foreground color.Color
	Background color.Color
	// ColorErr is set when either color could not be parsed. The
	// evaluation then reports MinRatio instead of failing.
	ColorErr   error
	FontSizePx float64
	FontWeight float64
}

// Result is the outcome of evaluating an Input.
type Result struct {
	Ratio       float64
	IsLargeText bool
	PassesAA    bool
	PassesAAA   bool
}

// Level returns the highest level the result satisfies.
func (r Result) Level() Level {
	switch {
	case r.PassesAAA:
		return LevelAAA
	case r.PassesAA:
		return LevelAA
	default:
		return LevelFail
	}
}

// Evaluate computes the contrast ratio of the input and classifies it.
func Evaluate(in Input) Result {
	ratio := MinRatio
	if in.ColorErr == nil {
		ratio = Ratio(in.Foreground, in.Background)
	}
	large := IsLargeText(in.FontSizePx, in.FontWeight)
	return Result{
		Ratio:       ratio,
		IsLargeText: large,
		PassesAA:    PassesAA(ratio, large),
		PassesAAA:   PassesAAA(ratio, large),
	}
}

// Ratio returns the WCAG contrast ratio between two colors, in [1, 21].
// The result does not depend on argument order. Alpha is not considered;
// callers composite translucent colors first if they need to.
func Ratio(a, b color.Color) float64 {
	la, lb := a.Luminosity(), b.Luminosity()
	lighter, darker := math.Max(la, lb), math.Min(la, lb)
	ratio := (lighter + 0.05) / (darker + 0.05)
	if math.IsNaN(ratio) {
		return MinRatio
	}
	return math.Min(math.Max(ratio, MinRatio), MaxRatio)
}

// IsLargeText reports whether text of the given size and weight is large
// in the WCAG sense.
func IsLargeText(fontSizePx, fontWeight float64) bool {
	return fontSizePx >= LargeTextPx || (fontSizePx >= LargeBoldTextPx && fontWeight >= BoldWeight)
}

// PassesAA reports whether ratio meets success criterion 1.4.3.
func PassesAA(ratio float64, large bool) bool {
	if large {
		return ratio >= AALarge
	}
	return ratio >= AANormal
}

// PassesAAA reports whether ratio meets success criterion 1.4.6.
func PassesAAA(ratio float64, large bool) bool {
	if large {
		return ratio >= AAALarge
	}
	return ratio >= AAANormal
}

package contrast

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/dom"
)

// CanvasColor is the background browsers paint when no element sets one.
var CanvasColor = color.White

// ResolveBackground returns the background color painted behind el.
//
// It reads el's own background-color and, while that is fully transparent,
// moves to the parent, multiplying a running opacity by each parent's
// opacity. The first non-transparent background wins. When the running
// opacity ended below 1 the returned color carries it as alpha; otherwise
// the color is returned opaque. If no ancestor paints a background,
// CanvasColor is returned.
//
// A style read failure is returned as is. A background that cannot be
// parsed yields an error wrapping color.ErrInvalidFormat.
func ResolveBackground(el dom.Element) (color.Color, error) {
	opacity := 1.0
	current := el
	for {
		value, err := current.Style(dom.PropBackgroundColor)
		if err != nil {
			return color.Color{}, fmt.Errorf("failed to read background of <%s>: %w", current.Tag(), err)
		}

		bg, transparent, err := parseBackground(value)
		if err != nil {
			return color.Color{}, err
		}
		if !transparent {
			if opacity < 1 {
				return bg.WithAlpha(opacity), nil
			}
			return bg.WithAlpha(1), nil
		}

		parent := current.Parent()
		if parent == nil {
			return CanvasColor, nil
		}
		opacity *= ElementOpacity(parent)
		current = parent
	}
}

// parseBackground parses a computed background-color and reports whether it
// paints nothing.
func parseBackground(value string) (color.Color, bool, error) {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "transparent") || v == "rgba(0, 0, 0, 0)" {
		return color.Transparent, true, nil
	}
	c, err := color.Parse(v)
	if err != nil {
		return color.Color{}, false, err
	}
	return c, c.IsTransparent(), nil
}

// ElementOpacity returns the computed opacity of el in [0, 1]. Missing,
// unreadable or unparsable values count as 1.
func ElementOpacity(el dom.Element) float64 {
	value, err := el.Style(dom.PropOpacity)
	if err != nil {
		return 1
	}
	return ParseOpacity(value)
}

// ParseOpacity parses a CSS opacity given as a number or percentage,
// clamped to [0, 1]. Unparsable values count as 1.
func ParseOpacity(value string) float64 {
	v := strings.TrimSpace(value)
	if v == "" {
		return 1
	}
	scale := 1.0
	if num, ok := strings.CutSuffix(v, "%"); ok {
		v, scale = num, 100
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) {
		return 1
	}
	n /= scale
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	default:
		return n
	}
}

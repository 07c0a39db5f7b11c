package color

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrInvalidFormat is returned when a string is not a supported CSS color notation.
var ErrInvalidFormat = errors.New("invalid color format")

// extraNames holds CSS named colors missing from the SVG 1.1 table in colornames.
var extraNames = map[string]Color{
	"rebeccapurple": RGB(0x66, 0x33, 0x99),
}

// Parse parses a CSS color value.
//
// Supported notations:
//   - #rgb, #rgba, #rrggbb, #rrggbbaa
//   - rgb() and rgba() with comma or space separated channels, integer or
//     percentage channels, and an optional alpha (number or percentage)
//   - hsl() and hsla()
//   - the keyword "transparent" and the CSS named colors
//
// Keywords that need context to resolve (inherit, currentcolor) are rejected.
func Parse(s string) (Color, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return Color{}, invalid(s)
	}

	if strings.HasPrefix(value, "#") {
		return parseHex(value)
	}

	if open := strings.IndexByte(value, '('); open > 0 {
		if !strings.HasSuffix(value, ")") {
			return Color{}, invalid(s)
		}
		name := strings.TrimSpace(value[:open])
		args := value[open+1 : len(value)-1]
		switch name {
		case "rgb", "rgba":
			return parseRGB(args, s)
		case "hsl", "hsla":
			return parseHSL(args, s)
		default:
			return Color{}, invalid(s)
		}
	}

	if value == "transparent" {
		return Transparent, nil
	}
	if c, ok := colornames.Map[value]; ok {
		return RGB(c.R, c.G, c.B), nil
	}
	if c, ok := extraNames[value]; ok {
		return c, nil
	}
	return Color{}, invalid(s)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Color {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func invalid(s string) error {
	return fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// parseHex handles the four hex notations. The RGB part is decoded by
// go-colorful; alpha digits are decoded here.
func parseHex(value string) (Color, error) {
	digits := value[1:]
	for _, r := range digits {
		if !isHexDigit(r) {
			return Color{}, invalid(value)
		}
	}

	var rgbPart, alphaPart string
	switch len(digits) {
	case 3, 6:
		rgbPart = digits
	case 4:
		rgbPart, alphaPart = digits[:3], digits[3:]
	case 8:
		rgbPart, alphaPart = digits[:6], digits[6:]
	default:
		return Color{}, invalid(value)
	}

	cf, err := colorful.Hex("#" + rgbPart)
	if err != nil {
		return Color{}, invalid(value)
	}
	c := fromColorful(cf)

	if alphaPart != "" {
		if len(alphaPart) == 1 {
			alphaPart += alphaPart
		}
		a, err := strconv.ParseUint(alphaPart, 16, 8)
		if err != nil {
			return Color{}, invalid(value)
		}
		c.A = float64(a) / 255
	}
	return c, nil
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f')
}

// splitArgs splits the arguments of a functional notation into its channel
// tokens and an optional alpha token. Both "1, 2, 3, 0.5" and "1 2 3 / 50%"
// are accepted.
func splitArgs(args string) (channels []string, alpha string, ok bool) {
	normalized := strings.NewReplacer(",", " ", "/", " / ").Replace(args)
	fields := strings.Fields(normalized)

	for i, f := range fields {
		if f == "/" {
			if i != 3 || len(fields) != 5 {
				return nil, "", false
			}
			return fields[:3], fields[4], true
		}
	}

	switch len(fields) {
	case 3:
		return fields, "", true
	case 4:
		return fields[:3], fields[3], true
	default:
		return nil, "", false
	}
}

func parseRGB(args, original string) (Color, error) {
	channels, alpha, ok := splitArgs(args)
	if !ok {
		return Color{}, invalid(original)
	}

	var rgb [3]float64
	for i, ch := range channels {
		v, err := parseChannel(ch)
		if err != nil {
			return Color{}, invalid(original)
		}
		rgb[i] = v
	}

	a := 1.0
	if alpha != "" {
		v, err := parseAlpha(alpha)
		if err != nil {
			return Color{}, invalid(original)
		}
		a = v
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2], A: a}, nil
}

func parseHSL(args, original string) (Color, error) {
	channels, alpha, ok := splitArgs(args)
	if !ok {
		return Color{}, invalid(original)
	}

	h, err := parseHue(channels[0])
	if err != nil {
		return Color{}, invalid(original)
	}
	s, err := parsePercent(channels[1])
	if err != nil {
		return Color{}, invalid(original)
	}
	l, err := parsePercent(channels[2])
	if err != nil {
		return Color{}, invalid(original)
	}

	c := fromColorful(colorful.Hsl(h, s, l))
	if alpha != "" {
		a, err := parseAlpha(alpha)
		if err != nil {
			return Color{}, invalid(original)
		}
		c.A = a
	}
	return c, nil
}

// parseChannel parses an rgb() channel into [0, 1].
func parseChannel(s string) (float64, error) {
	if s == "none" {
		return 0, nil
	}
	if strings.HasSuffix(s, "%") {
		v, err := parsePercent(s)
		return v, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, ErrInvalidFormat
	}
	return clamp01(v / 255), nil
}

// parseAlpha parses an alpha value given as a number or a percentage.
func parseAlpha(s string) (float64, error) {
	if strings.HasSuffix(s, "%") {
		return parsePercent(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, ErrInvalidFormat
	}
	return clamp01(v), nil
}

// parsePercent parses "NN%" into [0, 1].
func parsePercent(s string) (float64, error) {
	if !strings.HasSuffix(s, "%") {
		return 0, ErrInvalidFormat
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsNaN(v) {
		return 0, ErrInvalidFormat
	}
	return clamp01(v / 100), nil
}

// parseHue parses an hsl() hue into degrees in [0, 360).
func parseHue(s string) (float64, error) {
	unit := 1.0
	switch {
	case strings.HasSuffix(s, "deg"):
		s = strings.TrimSuffix(s, "deg")
	case strings.HasSuffix(s, "grad"):
		s, unit = strings.TrimSuffix(s, "grad"), 0.9
	case strings.HasSuffix(s, "rad"):
		s, unit = strings.TrimSuffix(s, "rad"), 180/math.Pi
	case strings.HasSuffix(s, "turn"):
		s, unit = strings.TrimSuffix(s, "turn"), 360
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidFormat
	}
	h := math.Mod(v*unit, 360)
	if h < 0 {
		h += 360
	}
	return h, nil
}

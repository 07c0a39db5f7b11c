package static

import (
	"strconv"
	"strings"

	"github.com/nao1215/contrastscan/internal/render"
)

// rootFontSizePx is the size em and rem resolve to inside media queries.
const rootFontSizePx = 16.0

// matchMedia evaluates a media query list against a screen of the given
// viewport. An empty list matches. The surface is treated as a light-themed
// screen with a fine pointer.
func matchMedia(list string, vp render.Viewport) bool {
	list = strings.ToLower(strings.TrimSpace(list))
	if list == "" {
		return true
	}
	for _, query := range strings.Split(list, ",") {
		if matchQuery(strings.TrimSpace(query), vp) {
			return true
		}
	}
	return false
}

func matchQuery(query string, vp render.Viewport) bool {
	if query == "" {
		return false
	}
	negate := false
	switch {
	case strings.HasPrefix(query, "not "):
		negate = true
		query = strings.TrimSpace(strings.TrimPrefix(query, "not "))
	case strings.HasPrefix(query, "only "):
		query = strings.TrimSpace(strings.TrimPrefix(query, "only "))
	}

	result := true
	for _, part := range strings.Split(query, " and ") {
		part = strings.TrimSpace(part)
		var ok bool
		if strings.HasPrefix(part, "(") && strings.HasSuffix(part, ")") {
			ok = matchFeature(strings.TrimSpace(part[1:len(part)-1]), vp)
		} else {
			ok = matchMediaType(part)
		}
		if !ok {
			result = false
			break
		}
	}
	return result != negate
}

func matchMediaType(t string) bool {
	switch t {
	case "all", "screen":
		return true
	default:
		return false
	}
}

// matchFeature evaluates one media feature such as "min-width: 600px" or
// "width >= 600px". Unknown features never match.
func matchFeature(feature string, vp render.Viewport) bool {
	width, height := float64(vp.Width), float64(vp.Height)

	for _, op := range []string{">=", "<=", ">", "<", "="} {
		if name, value, ok := strings.Cut(feature, op); ok {
			actual, known := dimension(strings.TrimSpace(name), width, height)
			v, valid := parseLength(strings.TrimSpace(value))
			if !known || !valid {
				return false
			}
			return compare(actual, op, v)
		}
	}

	name, value, hasValue := strings.Cut(feature, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !hasValue {
		switch name {
		case "color", "hover", "any-hover", "pointer", "any-pointer", "width", "height":
			return true
		default:
			return false
		}
	}

	switch name {
	case "orientation":
		if height >= width {
			return value == "portrait"
		}
		return value == "landscape"
	case "prefers-color-scheme":
		return value == "light"
	case "prefers-reduced-motion", "prefers-contrast", "prefers-reduced-transparency":
		return value == "no-preference"
	case "hover", "any-hover":
		return value == "hover"
	case "pointer", "any-pointer":
		return value == "fine"
	}

	prefix := ""
	base := name
	if rest, ok := strings.CutPrefix(name, "min-"); ok {
		prefix, base = "min", rest
	} else if rest, ok := strings.CutPrefix(name, "max-"); ok {
		prefix, base = "max", rest
	}
	actual, known := dimension(base, width, height)
	v, valid := parseLength(value)
	if !known || !valid {
		return false
	}
	switch prefix {
	case "min":
		return actual >= v
	case "max":
		return actual <= v
	default:
		return actual == v
	}
}

func dimension(name string, width, height float64) (float64, bool) {
	switch name {
	case "width", "device-width":
		return width, true
	case "height", "device-height":
		return height, true
	default:
		return 0, false
	}
}

func compare(a float64, op string, b float64) bool {
	switch op {
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case "<":
		return a < b
	default:
		return a == b
	}
}

// parseLength parses a media query length in px, em or rem.
func parseLength(s string) (float64, bool) {
	factor := 1.0
	switch {
	case strings.HasSuffix(s, "rem"):
		s, factor = strings.TrimSuffix(s, "rem"), rootFontSizePx
	case strings.HasSuffix(s, "em"):
		s, factor = strings.TrimSuffix(s, "em"), rootFontSizePx
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	case s != "0":
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v * factor, true
}

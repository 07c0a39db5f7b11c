package static

import (
	"maps"
	"strconv"
	"strings"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/contrast"
	"github.com/nao1215/contrastscan/internal/dom"
)

// Initial values of the tracked properties.
const (
	initialColor      = "rgb(0, 0, 0)"
	initialBackground = "rgba(0, 0, 0, 0)"
	initialDisplay    = "inline"
	initialVisibility = "visible"
	initialOpacity    = "1"
)

// maxVarDepth bounds nested var() substitution.
const maxVarDepth = 16

// trackedProperties are the longhands the cascade keeps.
var trackedProperties = map[string]bool{
	dom.PropDisplay:         true,
	dom.PropVisibility:      true,
	dom.PropOpacity:         true,
	dom.PropColor:           true,
	dom.PropBackgroundColor: true,
	dom.PropFontSize:        true,
	dom.PropFontWeight:      true,
}

type property struct {
	name  string
	value string
}

// expandShorthand maps a declaration onto the tracked longhands it sets.
// Custom properties are kept verbatim.
func expandShorthand(name, value string) []property {
	switch {
	case strings.HasPrefix(name, "--"):
		return []property{{name, value}}
	case trackedProperties[name]:
		return []property{{name, value}}
	case name == "background":
		return []property{{dom.PropBackgroundColor, backgroundColorOf(value)}}
	case name == "font":
		return fontLonghands(value)
	default:
		return nil
	}
}

// backgroundColorOf extracts the color layer of a background shorthand.
// A shorthand without a color resets the background to transparent.
func backgroundColorOf(value string) string {
	if strings.Contains(value, "var(") {
		return value
	}
	tokens := splitTokens(value)
	// The color can only appear in the final layer.
	if i := lastTopLevelComma(tokens); i >= 0 {
		tokens = tokens[i+1:]
	}
	for _, tok := range tokens {
		if isCSSWideKeyword(tok) {
			return tok
		}
		if strings.EqualFold(tok, "currentcolor") {
			return tok
		}
		if _, err := color.Parse(tok); err == nil {
			return tok
		}
	}
	return "transparent"
}

func lastTopLevelComma(tokens []string) int {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i] == "," {
			return i
		}
	}
	return -1
}

// fontLonghands extracts font-weight and font-size from a font shorthand.
func fontLonghands(value string) []property {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.Contains(v, "var(") {
		return nil
	}
	if isCSSWideKeyword(v) {
		return []property{{dom.PropFontWeight, v}, {dom.PropFontSize, v}}
	}

	weight := "normal"
	for _, tok := range splitTokens(v) {
		switch {
		case tok == "bold" || tok == "bolder" || tok == "lighter":
			weight = tok
		case isNumericWeight(tok):
			weight = tok
		case looksLikeFontSize(tok):
			size, _, _ := strings.Cut(tok, "/")
			return []property{{dom.PropFontWeight, weight}, {dom.PropFontSize, size}}
		}
	}
	// System fonts and malformed values leave the longhands alone.
	return nil
}

func isNumericWeight(tok string) bool {
	n, err := strconv.Atoi(tok)
	return err == nil && n >= 1 && n <= 1000
}

func looksLikeFontSize(tok string) bool {
	size, _, _ := strings.Cut(tok, "/")
	switch size {
	case "xx-small", "x-small", "small", "medium", "large", "x-large", "xx-large", "xxx-large", "larger", "smaller":
		return true
	}
	for _, unit := range []string{"px", "pt", "pc", "em", "rem", "%", "vw", "vh"} {
		if num, ok := strings.CutSuffix(size, unit); ok {
			if _, err := strconv.ParseFloat(num, 64); err == nil {
				return true
			}
		}
	}
	return false
}

func isCSSWideKeyword(v string) bool {
	switch strings.ToLower(v) {
	case "inherit", "initial", "unset", "revert", "revert-layer":
		return true
	}
	return false
}

// splitTokens splits a value on whitespace outside parentheses. Top-level
// commas become their own tokens.
func splitTokens(value string) []string {
	var tokens []string
	var current strings.Builder
	depth := 0
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range value {
		switch {
		case r == '(':
			depth++
			current.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			current.WriteRune(r)
		case depth == 0 && r == ',':
			flush()
			tokens = append(tokens, ",")
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// computedStyle is the resolved style of one element.
type computedStyle struct {
	color      string
	background string
	display    string
	visibility string
	opacity    string
	fontSizePx float64
	fontWeight float64
	vars       map[string]string
}

// rootStyle is the style inherited by the root element.
func rootStyle() *computedStyle {
	return &computedStyle{
		color:      initialColor,
		background: initialBackground,
		display:    initialDisplay,
		visibility: initialVisibility,
		opacity:    initialOpacity,
		fontSizePx: contrast.DefaultFontSizePx,
		fontWeight: contrast.DefaultFontWeight,
		vars:       map[string]string{},
	}
}

// computeStyle resolves declared values against the parent style.
func computeStyle(declared map[string]declaration, parent *computedStyle) *computedStyle {
	s := &computedStyle{
		background: initialBackground,
		display:    initialDisplay,
		opacity:    initialOpacity,
		visibility: parent.visibility,
		vars:       parent.vars,
	}

	var custom []string
	for name := range declared {
		if strings.HasPrefix(name, "--") {
			custom = append(custom, name)
		}
	}
	if len(custom) > 0 {
		s.vars = maps.Clone(parent.vars)
		for _, name := range custom {
			s.vars[name] = declared[name].value
		}
	}

	value := func(name string) (string, bool) {
		d, ok := declared[name]
		if !ok {
			return "", false
		}
		v, ok := resolveVars(d.value, s.vars, 0)
		if !ok {
			// Invalid at computed-value time behaves as unset.
			return "unset", true
		}
		return strings.TrimSpace(v), true
	}

	// color first: currentcolor in other properties refers to it.
	s.color = parent.color
	if v, ok := value(dom.PropColor); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit", "unset", "revert", "revert-layer", "currentcolor":
		case "initial":
			s.color = initialColor
		default:
			s.color = normalizeColor(v)
		}
	}

	if v, ok := value(dom.PropBackgroundColor); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit":
			s.background = parent.background
		case "initial", "unset", "revert", "revert-layer":
		case "currentcolor":
			s.background = s.color
		default:
			s.background = normalizeColor(v)
		}
	}

	if v, ok := value(dom.PropDisplay); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit":
			s.display = parent.display
		case "initial", "unset", "revert", "revert-layer":
		default:
			s.display = lower
		}
	}

	if v, ok := value(dom.PropVisibility); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit", "unset", "revert", "revert-layer":
		case "initial":
			s.visibility = initialVisibility
		default:
			s.visibility = lower
		}
	}

	if v, ok := value(dom.PropOpacity); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit":
			s.opacity = parent.opacity
		case "initial", "unset", "revert", "revert-layer":
		default:
			s.opacity = formatNumber(contrast.ParseOpacity(lower))
		}
	}

	s.fontSizePx = parent.fontSizePx
	if v, ok := value(dom.PropFontSize); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit", "unset", "revert", "revert-layer":
		case "initial":
			s.fontSizePx = contrast.DefaultFontSizePx
		default:
			s.fontSizePx = contrast.ParseFontSize(lower, parent.fontSizePx)
		}
	}

	s.fontWeight = parent.fontWeight
	if v, ok := value(dom.PropFontWeight); ok {
		switch lower := strings.ToLower(v); lower {
		case "inherit", "unset", "revert", "revert-layer":
		case "initial":
			s.fontWeight = contrast.DefaultFontWeight
		case "bolder":
			s.fontWeight = bolder(parent.fontWeight)
		case "lighter":
			s.fontWeight = lighter(parent.fontWeight)
		default:
			s.fontWeight = contrast.ParseFontWeight(lower)
		}
	}

	return s
}

// properties returns the style in the form browsers report computed values.
func (s *computedStyle) properties() map[string]string {
	return map[string]string{
		dom.PropColor:           s.color,
		dom.PropBackgroundColor: s.background,
		dom.PropDisplay:         s.display,
		dom.PropVisibility:      s.visibility,
		dom.PropOpacity:         s.opacity,
		dom.PropFontSize:        formatNumber(s.fontSizePx) + "px",
		dom.PropFontWeight:      formatNumber(s.fontWeight),
	}
}

// normalizeColor serializes a parsable color the way browsers do and
// leaves anything else as written.
func normalizeColor(v string) string {
	c, err := color.Parse(v)
	if err != nil {
		return v
	}
	return c.String()
}

// bolder and lighter follow the relative weight table of CSS Fonts Level 4.
func bolder(parent float64) float64 {
	switch {
	case parent < 350:
		return 400
	case parent < 550:
		return 700
	default:
		return 900
	}
}

func lighter(parent float64) float64 {
	switch {
	case parent < 550:
		return 100
	case parent < 750:
		return 400
	default:
		return 700
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// resolveVars substitutes var() references. It reports false when a
// reference has neither a value nor a fallback.
func resolveVars(value string, vars map[string]string, depth int) (string, bool) {
	if depth > maxVarDepth {
		return "", false
	}
	start := strings.Index(value, "var(")
	if start < 0 {
		return value, true
	}

	// Find the matching closing parenthesis.
	depthParen := 0
	end := -1
	for i := start + len("var"); i < len(value); i++ {
		switch value[i] {
		case '(':
			depthParen++
		case ')':
			depthParen--
		}
		if depthParen == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", false
	}

	inner := value[start+len("var(") : end]
	name, fallback, hasFallback := strings.Cut(inner, ",")
	name = strings.TrimSpace(name)

	replacement, ok := vars[name]
	if ok {
		replacement, ok = resolveVars(strings.TrimSpace(replacement), vars, depth+1)
	}
	if !ok {
		if !hasFallback {
			return "", false
		}
		replacement, ok = resolveVars(strings.TrimSpace(fallback), vars, depth+1)
		if !ok {
			return "", false
		}
	}

	return resolveVars(value[:start]+replacement+value[end+1:], vars, depth+1)
}

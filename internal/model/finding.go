package model

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/contrastscan/internal/color"
)

// Limits applied when a finding is created.
const (
	// MaxTextLength is the maximum number of characters of element text kept.
	MaxTextLength = 120

	// MaxMarkupLength is the maximum number of characters of element markup kept.
	MaxMarkupLength = 500
)

// Position is the top-left corner of an element in CSS pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ContrastFinding is one text element whose contrast does not meet WCAG AAA.
// Findings are created once per element per scan and never modified.
type ContrastFinding struct {
	// Element is the serialized markup of the element.
	Element string `json:"element"`

	// Tag is the lowercase tag name.
	Tag string `json:"tag"`

	// Text is the element text, whitespace-collapsed and truncated.
	Text string `json:"text"`

	// Foreground is the resolved text color.
	Foreground color.Color `json:"foreground"`

	// Background is the resolved effective background. Its alpha is below 1
	// when translucent ancestors cover it.
	Background color.Color `json:"background"`

	// Ratio is the WCAG contrast ratio, at least 1.
	Ratio float64 `json:"ratio"`

	// IsLargeText reports whether the large-text thresholds apply.
	IsLargeText bool `json:"is_large_text"`

	// PassesAA reports whether the element meets criterion 1.4.3.
	PassesAA bool `json:"passes_aa"` //nolint:tagliatelle // AA is a WCAG level

	// PassesAAA reports whether the element meets criterion 1.4.6.
	// It implies PassesAA.
	PassesAAA bool `json:"passes_aaa"` //nolint:tagliatelle // AAA is a WCAG level

	// Position is where the element was rendered.
	Position Position `json:"position"`

	// FontSizePx is the computed font size in pixels.
	FontSizePx float64 `json:"font_size_px"`

	// FontWeight is the computed numeric font weight.
	FontWeight float64 `json:"font_weight"`

	// Severity is HIGH when AA fails and MEDIUM when only AAA fails.
	Severity Severity `json:"severity"`

	// ColorError is set when a color could not be parsed and the ratio is the
	// conservative minimum.
	ColorError string `json:"color_error,omitempty"`
}

// DisplayRatio rounds the ratio to two decimals for presentation.
func (f ContrastFinding) DisplayRatio() float64 {
	return math.Round(f.Ratio*100) / 100
}

// Key identifies the element across scans of the same page.
func (f ContrastFinding) Key() string {
	return f.Tag + "|" + f.Text + "|" + f.Element
}

// CleanText collapses whitespace and truncates text to MaxTextLength characters.
func CleanText(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), MaxTextLength)
}

// CleanMarkup truncates markup to MaxMarkupLength characters.
func CleanMarkup(s string) string {
	return truncate(strings.TrimSpace(s), MaxMarkupLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

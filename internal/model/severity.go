package model

import (
	"fmt"
	"strings"
)

// Severity represents how far a finding is from compliance.
type Severity int

const (
	// SeverityMedium marks text that meets AA but not AAA.
	SeverityMedium Severity = iota + 1

	// SeverityHigh marks text that fails AA, the level most regulations require.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the severity as its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "MEDIUM":
		*s = SeverityMedium
	case "HIGH":
		*s = SeverityHigh
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// SeverityFor returns the severity of a finding with the given AA result.
func SeverityFor(passesAA bool) Severity {
	if passesAA {
		return SeverityMedium
	}
	return SeverityHigh
}

// FindingInfo describes the WCAG success criterion a finding violates.
type FindingInfo struct {
	Criterion      string
	Level          string
	Impact         string
	Recommendation string
}

// findingInfoMapping maps severities to the criterion they violate.
var findingInfoMapping = map[Severity]FindingInfo{
	SeverityHigh: {
		Criterion:      "1.4.3 Contrast (Minimum)",
		Level:          "AA",
		Impact:         "Text is hard to read for users with low vision or color deficiencies, and the page does not conform to WCAG 2.1 AA.",
		Recommendation: "Darken the text or lighten the background until the ratio is at least 4.5:1 (3:1 for large text).",
	},
	SeverityMedium: {
		Criterion:      "1.4.6 Contrast (Enhanced)",
		Level:          "AAA",
		Impact:         "Text meets the minimum contrast but not the enhanced level some users need.",
		Recommendation: "Increase the ratio to at least 7:1 (4.5:1 for large text) to reach AAA.",
	},
}

// GetFindingInfo returns the criterion information for a severity.
func GetFindingInfo(s Severity) FindingInfo {
	if info, ok := findingInfoMapping[s]; ok {
		return info
	}
	return FindingInfo{
		Impact:         "Unknown severity. Review manually.",
		Recommendation: "Measure the contrast of this element manually.",
	}
}

package model

import (
	"time"
)

// ScanReport is the result of scanning one page.
type ScanReport struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the document URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Title is the document title.
	Title string `json:"title,omitempty"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Duration is how long the scan took.
	Duration time.Duration `json:"duration"`

	// Renderer names the rendering engine.
	Renderer string `json:"renderer"`

	// Viewport is the surface size as "WxH".
	Viewport string `json:"viewport"`

	// ElementsChecked counts elements whose contrast was measured.
	ElementsChecked int `json:"elements_checked"`

	// ElementsSkipped counts candidates that were empty, hidden or ignored.
	ElementsSkipped int `json:"elements_skipped"`

	// ElementErrors counts candidates whose style could not be read.
	ElementErrors int `json:"element_errors"`

	// Findings lists every element below AAA in document order.
	Findings []ContrastFinding `json:"findings"`

	// State is the final state of the scan: "done" or "failed".
	State string `json:"state"`

	// Error is the user-facing failure message when State is "failed".
	Error string `json:"error,omitempty"`
}

// NewScanReport creates an empty report for url.
func NewScanReport(url string) *ScanReport {
	return &ScanReport{
		URL:         url,
		DateScanned: time.Now(),
		Findings:    make([]ContrastFinding, 0),
	}
}

// Failed reports whether the scan did not complete.
func (r *ScanReport) Failed() bool {
	return r.Error != ""
}

// Summary counts the findings of a report.
type Summary struct {
	// Total is the number of findings.
	Total int `json:"total"`

	// FailingAA counts findings below the AA threshold (HIGH).
	FailingAA int `json:"failing_aa"` //nolint:tagliatelle // AA is a WCAG level

	// FailingAAAOnly counts findings that meet AA but not AAA (MEDIUM).
	FailingAAAOnly int `json:"failing_aaa_only"` //nolint:tagliatelle // AAA is a WCAG level

	// LargeText counts findings on large text.
	LargeText int `json:"large_text"`

	// WorstRatio is the lowest ratio among findings, or 0 without findings.
	WorstRatio float64 `json:"worst_ratio"`
}

// Summary computes finding counts.
func (r *ScanReport) Summary() Summary {
	s := Summary{Total: len(r.Findings)}
	for i, f := range r.Findings {
		if f.PassesAA {
			s.FailingAAAOnly++
		} else {
			s.FailingAA++
		}
		if f.IsLargeText {
			s.LargeText++
		}
		if i == 0 || f.Ratio < s.WorstRatio {
			s.WorstRatio = f.Ratio
		}
	}
	return s
}

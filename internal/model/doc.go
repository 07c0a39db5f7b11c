// Package model defines the data structures shared by the scanner, the
// report writers and the scan history database.
//
// This package contains the following main types:
//   - ContrastFinding: one text element that does not meet WCAG AAA
//   - ScanReport: the result of scanning one page
//   - Summary: finding counts derived from a ScanReport
//
// The models are serializable to JSON for report output and database storage.
package model

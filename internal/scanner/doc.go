// Package scanner audits one rendered page for color-contrast problems.
//
// A Checker opens the page through a render.Loader, walks the text-bearing
// elements in document order, resolves each element's foreground and
// effective background, and reports every element whose contrast does not
// reach WCAG AAA. The lifecycle of a scan is tracked by a small state
// machine: idle, loading, scanning, then done or failed.
//
// Failures that prevent the scan are reported as a single *CheckError whose
// message is suitable for end users. Problems with individual elements are
// logged at debug level and skipped.
package scanner

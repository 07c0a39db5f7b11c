package report

import (
	"io"

	"github.com/nao1215/contrastscan/internal/model"
)

// Writer writes scan reports in one format.
type Writer interface {
	// Write outputs one report and returns the number of bytes written.
	Write(report *model.ScanReport) (int, error)

	// WriteAll outputs the reports of a batch scan.
	WriteAll(reports []*model.ScanReport) (int, error)
}

// MultiWriter writes to multiple Writers in order, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the reports to all configured Writers.
func (m *MultiWriter) WriteAll(reports []*model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// writeEach writes reports one after another with write.
func writeEach(reports []*model.ScanReport, write func(*model.ScanReport) (int, error)) (int, error) {
	var total int
	for _, r := range reports {
		if r == nil {
			continue
		}
		n, err := write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// truncateString truncates s to maxLen characters with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

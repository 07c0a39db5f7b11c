package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/model"
)

// createTestReport creates a report with one AA and one AAA finding.
func createTestReport() *model.ScanReport {
	report := model.NewScanReport("https://example.com/")
	report.DateScanned = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	report.Title = "Example | Home"
	report.Renderer = "static"
	report.Viewport = "1024x768"
	report.State = "done"
	report.ElementsChecked = 12
	report.ElementsSkipped = 3
	report.Findings = []model.ContrastFinding{
		{
			Element:    `<a href="/">Light link</a>`,
			Tag:        "a",
			Text:       "Light link",
			Foreground: color.MustParse("#999999"),
			Background: color.White,
			Ratio:      2.848,
			FontSizePx: 16,
			FontWeight: 400,
			Position:   model.Position{X: 10, Y: 200},
			Severity:   model.SeverityHigh,
		},
		{
			Element:     "<h2>Gray heading</h2>",
			Tag:         "h2",
			Text:        "Gray heading",
			Foreground:  color.MustParse("#767676"),
			Background:  color.White,
			Ratio:       4.542,
			IsLargeText: false,
			PassesAA:    true,
			FontSizePx:  16,
			FontWeight:  700,
			Severity:    model.SeverityMedium,
		},
	}
	return report
}

func failedReport() *model.ScanReport {
	report := model.NewScanReport("https://down.example/")
	report.State = "failed"
	report.Error = "Failed to analyze color contrast. Please check the URL and try again."
	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header summary and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"COLOR CONTRAST REPORT",
			"https://example.com/",
			"Status:     Done",
			"Elements checked:  12",
			"Fails AA:          1",
			"Fails AAA only:    1",
			"Lowest ratio:      2.85:1",
			"[!!] HIGH, WCAG 1.4.3",
			"[!] MEDIUM, WCAG 1.4.6",
			`<a> "Light link"`,
			"#999999 on #ffffff",
			swatchText,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "\x1b[") {
			t.Error("expected no escape sequences when writing to a buffer")
		}
	})

	t.Run("shows markup when requested", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithMarkup(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `<a href="/">Light link</a>`) {
			t.Error("expected element markup in output")
		}
	})

	t.Run("failed scan shows error and no summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(failedReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "ERROR - Failed to analyze color contrast") {
			t.Error("expected error status")
		}
		if strings.Contains(output, "SUMMARY") {
			t.Error("expected no summary for failed scan")
		}
	})

	t.Run("batch total", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).WriteAll([]*model.ScanReport{createTestReport(), nil, failedReport()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}
		if !strings.Contains(buf.String(), "Scanned 2 page(s): 2 finding(s), 1 failed scan(s)") {
			t.Errorf("expected batch total, got\n%s", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes compact report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(strings.TrimSpace(buf.String()), "\n") {
			t.Error("expected single-line output")
		}

		var decoded model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.URL != "https://example.com/" || len(decoded.Findings) != 2 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
		if decoded.Findings[0].Severity != model.SeverityHigh {
			t.Errorf("unexpected severity %v", decoded.Findings[0].Severity)
		}
	})

	t.Run("wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("1.2.3")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "1.2.3" || decoded.Summary.Total != 2 || decoded.Summary.FailingAA != 1 {
			t.Errorf("unexpected wrapper %+v", decoded)
		}
		if !strings.Contains(buf.String(), "\n  \"") {
			t.Error("expected indented output")
		}
	})

	t.Run("writes batch as array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteAll([]*model.ScanReport{createTestReport(), failedReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded []model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[1].Error == "" {
			t.Errorf("unexpected batch %+v", decoded)
		}
	})
}

// TestWithIndent tests custom indentation.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(failedReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n>\t\"url\"") {
		t.Errorf("expected prefix and tab indentation, got %s", buf.String())
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Color Contrast Report",
			"`https://example.com/`",
			"Example",
			"## Summary",
			"```mermaid",
			"Fails AA",
			"## Findings",
			"### 🟠 Fails AA",
			"### 🟡 Fails AAA",
			"`#999999`",
			"2.85:1",
			"1.4.3 Contrast (Minimum)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no findings", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Findings = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No contrast findings.") {
			t.Error("expected empty findings message")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no pie chart without findings")
		}
	})

	t.Run("failed scan", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(failedReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "❌ Error - Failed to analyze color contrast") {
			t.Error("expected error status")
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.ScanReport) (int, error)      { return 0, errors.New("boom") }
func (failingWriter) WriteAll([]*model.ScanReport) (int, error) { return 0, errors.New("boom") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var textBuf, jsonBuf bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&textBuf), NewJSONWriter(&jsonBuf))
		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != textBuf.Len()+jsonBuf.Len() {
			t.Errorf("expected %d bytes, got %d", textBuf.Len()+jsonBuf.Len(), n)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&buf))
		if _, err := mw.WriteAll([]*model.ScanReport{createTestReport()}); err == nil {
			t.Error("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestTruncateString tests truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のテキスト", 5, "日本..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

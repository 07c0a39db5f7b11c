package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/contrastscan/internal/model"
)

// swatchText is rendered in each finding's colors.
const swatchText = " Aa "

// SimpleWriter outputs human-readable text reports. Each finding shows a
// swatch of its text in the measured colors; swatches are plain text when
// the output is not a color terminal.
type SimpleWriter struct {
	baseWriter

	renderer *lipgloss.Renderer

	// showMarkup prints the element markup under each finding.
	showMarkup bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithMarkup prints each offending element's markup.
func WithMarkup(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showMarkup = show
	}
}

// WithRenderer sets the lipgloss renderer used for swatches and headings.
func WithRenderer(r *lipgloss.Renderer) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.renderer = r
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	if w.renderer == nil {
		w.renderer = lipgloss.NewRenderer(output)
	}
	return w
}

// Write outputs one report.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFindings(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteAll outputs every report followed by a one-line total.
func (w *SimpleWriter) WriteAll(reports []*model.ScanReport) (int, error) {
	total, err := writeEach(reports, w.Write)
	if err != nil || len(reports) < 2 {
		return total, err
	}

	var pages, failed, findings int
	for _, r := range reports {
		if r == nil {
			continue
		}
		pages++
		if r.Failed() {
			failed++
		}
		findings += len(r.Findings)
	}
	n, err := fmt.Fprintf(w.output, "\nScanned %d page(s): %d finding(s), %d failed scan(s)\n", pages, findings, failed)
	return total + n, err
}

func (w *SimpleWriter) title(s string) string {
	return w.renderer.NewStyle().Bold(true).Render(s)
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(w.title("                      COLOR CONTRAST REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "URL:        %s\n", report.URL)
	if report.FinalURL != "" && report.FinalURL != report.URL {
		fmt.Fprintf(sb, "Final URL:  %s\n", report.FinalURL)
	}
	if report.Title != "" {
		fmt.Fprintf(sb, "Title:      %s\n", report.Title)
	}
	fmt.Fprintf(sb, "Scan Date:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Renderer:   %s (%s)\n", report.Renderer, report.Viewport)

	if report.Failed() {
		fmt.Fprintf(sb, "Status:     ERROR - %s\n", report.Error)
	} else {
		fmt.Fprintf(sb, "Status:     %s\n", cases.Title(language.English).String(report.State))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	if report.Failed() {
		return
	}
	summary := report.Summary()

	writeSection(sb, w.title("SUMMARY"))
	fmt.Fprintf(sb, "  Elements checked:  %d\n", report.ElementsChecked)
	fmt.Fprintf(sb, "  Elements skipped:  %d\n", report.ElementsSkipped)
	if report.ElementErrors > 0 {
		fmt.Fprintf(sb, "  Unreadable:        %d\n", report.ElementErrors)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Fails AA:          %d\n", summary.FailingAA)
	fmt.Fprintf(sb, "  Fails AAA only:    %d\n", summary.FailingAAAOnly)
	fmt.Fprintf(sb, "  TOTAL:             %d findings\n", summary.Total)
	if summary.Total > 0 {
		fmt.Fprintf(sb, "  Lowest ratio:      %.2f:1\n", summary.WorstRatio)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Findings) == 0 {
		return
	}
	writeSection(sb, w.title("FINDINGS"))

	for _, severity := range []model.Severity{model.SeverityHigh, model.SeverityMedium} {
		var findings []model.ContrastFinding
		for _, f := range report.Findings {
			if f.Severity == severity {
				findings = append(findings, f)
			}
		}
		if len(findings) == 0 {
			continue
		}

		info := model.GetFindingInfo(severity)
		fmt.Fprintf(sb, "[%s] %s, WCAG %s\n", severityIndicator(severity), severity, info.Criterion)
		for _, f := range findings {
			w.writeFinding(sb, f)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeFinding(sb *strings.Builder, f model.ContrastFinding) {
	swatch := w.renderer.NewStyle().
		Foreground(lipgloss.Color(f.Foreground.Hex())).
		Background(lipgloss.Color(f.Background.Hex())).
		Render(swatchText)

	size := "normal"
	if f.IsLargeText {
		size = "large"
	}
	fmt.Fprintf(sb, "  %s %5.2f:1  <%s> %q\n", swatch, f.DisplayRatio(), f.Tag, truncateString(f.Text, 60))
	fmt.Fprintf(sb, "         %s on %s, %.0fpx/%.0f (%s text) at %.0f,%.0f\n",
		f.Foreground.Hex(), f.Background.Hex(), f.FontSizePx, f.FontWeight, size, f.Position.X, f.Position.Y)
	if f.ColorError != "" {
		fmt.Fprintf(sb, "         color could not be read: %s\n", f.ColorError)
	}
	if w.showMarkup {
		fmt.Fprintf(sb, "         %s\n", truncateString(f.Element, 120))
	}
}

func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	default:
		return "?"
	}
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by contrastscan\n")
	sb.WriteString("https://github.com/nao1215/contrastscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

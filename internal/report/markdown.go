package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/contrastscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// pull request comments.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one report as a Markdown document.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAll outputs one document per report.
func (w *MarkdownWriter) WriteAll(reports []*model.ScanReport) (int, error) {
	return writeEach(reports, w.Write)
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Color Contrast Report")
	md.PlainText("")

	rows := [][]string{
		{"URL", "`" + report.URL + "`"},
	}
	if report.Title != "" {
		rows = append(rows, []string{"Title", escapeCell(report.Title)})
	}
	rows = append(rows,
		[]string{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		[]string{"Renderer", report.Renderer + " (" + report.Viewport + ")"},
		[]string{"Elements Checked", strconv.Itoa(report.ElementsChecked)},
		[]string{"Status", statusText(report)},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusText(report *model.ScanReport) string {
	if report.Failed() {
		return "❌ Error - " + report.Error
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	summary := report.Summary()

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{"🟠 Fails AA (1.4.3)", strconv.Itoa(summary.FailingAA)},
			{"🟡 Fails AAA only (1.4.6)", strconv.Itoa(summary.FailingAAAOnly)},
			{"Large text", strconv.Itoa(summary.LargeText)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, report, summary)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Contrast Findings"),
		piechart.WithShowData(true),
	)
	if summary.FailingAA > 0 {
		chart.LabelAndIntValue("Fails AA", uint64(summary.FailingAA))
	}
	if summary.FailingAAAOnly > 0 {
		chart.LabelAndIntValue("Fails AAA only", uint64(summary.FailingAAAOnly))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport, summary model.Summary) {
	switch {
	case report.Failed():
		md.Caution("The page could not be scanned.")
	case summary.FailingAA > 0:
		md.Warningf("%d element(s) fail WCAG 2.1 AA contrast and should be fixed.", summary.FailingAA)
	case summary.FailingAAAOnly > 0:
		md.Importantf("%d element(s) meet AA but not AAA.", summary.FailingAAAOnly)
	default:
		md.Tip("All checked text meets WCAG AAA contrast.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Findings")
	md.PlainText("")

	if len(report.Findings) == 0 {
		md.PlainText("No contrast findings.")
		md.PlainText("")
		return
	}

	sections := []struct {
		severity model.Severity
		header   string
	}{
		{model.SeverityHigh, "🟠 Fails AA"},
		{model.SeverityMedium, "🟡 Fails AAA"},
	}
	for _, sec := range sections {
		var findings []model.ContrastFinding
		for _, f := range report.Findings {
			if f.Severity == sec.severity {
				findings = append(findings, f)
			}
		}
		if len(findings) == 0 {
			continue
		}

		md.H3(sec.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)

		info := model.GetFindingInfo(sec.severity)
		md.Details(info.Criterion, info.Impact+" "+info.Recommendation)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.ContrastFinding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			"`" + f.Tag + "`",
			escapeCell(truncateString(f.Text, 50)),
			"`" + f.Foreground.Hex() + "`",
			"`" + f.Background.Hex() + "`",
			fmt.Sprintf("%.2f:1", f.DisplayRatio()),
			yesNo(f.IsLargeText),
			fmt.Sprintf("%.0f, %.0f", f.Position.X, f.Position.Y),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Element", "Text", "Foreground", "Background", "Ratio", "Large", "Position"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [contrastscan](https://github.com/nao1215/contrastscan)*")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

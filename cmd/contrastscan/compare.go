package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/contrastscan/internal/config"
	"github.com/nao1215/contrastscan/internal/database"
	"github.com/nao1215/contrastscan/internal/model"
)

// Trend directions and summary messages.
const (
	trendWorsened      = "worsened"
	trendImproved      = "improved"
	trendUnchanged     = "unchanged"
	noFindingsMessage  = "No findings"
	ratioChangeEpsilon = 0.01
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [URL]",
		Short: "Compare scan results with saved history",
		Long: `Compare shows how the contrast findings of a page changed between two
scans saved with 'contrastscan scan --save':
- New findings that appeared since the earlier scan
- Resolved findings that are no longer present
- Findings whose contrast ratio changed

Findings are matched by tag, text and markup.

Examples:
  # Compare the latest two scans of a page
  contrastscan compare https://example.com/

  # List saved scans of a page
  contrastscan compare --list https://example.com/

  # Compare the latest scan with a specific scan by ID
  contrastscan compare --with-scan-id 5 https://example.com/

  # Compare with the first scan since a date
  contrastscan compare --since 2026-01-01 https://example.com/

  # List every page in the history
  contrastscan compare --list-urls`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified URL")
	cmd.Flags().BoolP("list-urls", "L", false,
		"List every URL in the scan history")

	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan on or after this date (format: YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"Scan history directory (default: XDG data directory)")

	return cmd
}

// compareOptions holds the parsed flags of the compare command.
type compareOptions struct {
	url            string
	listURLs       bool
	listHistory    bool
	withScanID     int64
	since          string
	jsonOutput     bool
	markdownOutput bool
	dbDir          string
}

func parseCompareOptions(cmd *cobra.Command, args []string) (*compareOptions, error) {
	opts := &compareOptions{dbDir: config.XDGDataDir()}
	flags := cmd.Flags()
	var err error

	if opts.listURLs, err = flags.GetBool("list-urls"); err != nil {
		return nil, err
	}
	if opts.listHistory, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.withScanID, err = flags.GetInt64("with-scan-id"); err != nil {
		return nil, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return nil, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdownOutput, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		opts.dbDir = dbDir
	}

	if opts.jsonOutput && opts.markdownOutput {
		return nil, config.ErrConflictingReportFormats
	}
	if !opts.listURLs {
		if len(args) == 0 {
			return nil, errors.New("URL is required (use --list-urls to see scanned pages)")
		}
		opts.url = args[0]
	}
	return opts, nil
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Validate before opening the database so a usage error never creates one.
	opts, err := parseCompareOptions(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open scan history (run 'contrastscan scan --save' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.listURLs:
		return listScannedURLs(ctx, out, db)
	case opts.listHistory:
		return listScanHistory(ctx, out, db, opts.url)
	default:
		return runComparison(ctx, out, db, opts)
	}
}

// listScannedURLs lists every URL that has saved scans.
func listScannedURLs(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	urls, err := db.ListScannedURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list URLs: %w", err)
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No scanned pages found in the history.")
		fmt.Fprintln(out, "\nUse 'contrastscan scan --save <url>' to record a scan.")
		return nil
	}

	fmt.Fprintf(out, "Scanned pages (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'contrastscan compare --list <url>' to see the scan history of a page.")
	return nil
}

// listScanHistory lists the saved scans of one URL.
func listScanHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, url string) error {
	entries, err := db.GetScanHistoryWithMetadata(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", url)
		fmt.Fprintln(out, "\nUse 'contrastscan scan --save' to record a scan of this page.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", url, len(entries))
	fmt.Fprintf(out, "  %-6s  %-20s  %-8s  %s\n", "ID", "Date", "Renderer", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, meta := range entries {
		fmt.Fprintf(out, "  %-6d  %-20s  %-8s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Renderer,
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'contrastscan compare <url>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'contrastscan compare --with-scan-id <id> <url>' to compare with a specific scan.")
	return nil
}

// formatSummary formats finding counts as "AA:2 AAA:5 (min 2.31:1)".
func formatSummary(s model.Summary) string {
	if s.Total == 0 {
		return noFindingsMessage
	}
	return fmt.Sprintf("AA:%d AAA:%d (min %.2f:1)", s.FailingAA, s.FailingAAAOnly, s.WorstRatio)
}

// selectReports picks the current (latest) and the previous report to compare.
func selectReports(ctx context.Context, db *database.HistoryDB, opts *compareOptions) (previous, current *model.ScanReport, err error) {
	reports, err := db.GetScanHistory(ctx, opts.url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(reports) == 0 {
		return nil, nil, fmt.Errorf("no scan history found for %s", opts.url)
	}
	current = reports[0]

	switch {
	case opts.withScanID > 0:
		previous, err = db.GetScanReportByID(ctx, opts.withScanID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get scan with ID %d: %w", opts.withScanID, err)
		}
		if previous == nil {
			return nil, nil, fmt.Errorf("scan with ID %d not found", opts.withScanID)
		}
		if previous.URL != opts.url {
			return nil, nil, fmt.Errorf("scan ID %d belongs to %s, not %s", opts.withScanID, previous.URL, opts.url)
		}

	case opts.since != "":
		sinceDate, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Newest first, so walk backwards for the oldest match.
		for i := len(reports) - 1; i >= 0; i-- {
			if !reports[i].DateScanned.Before(sinceDate) {
				previous = reports[i]
				break
			}
		}
		if previous == nil {
			return nil, nil, fmt.Errorf("no scans found since %s", opts.since)
		}
		if previous == current {
			return nil, nil, fmt.Errorf("only one scan found since %s; at least 2 scans are required for comparison", opts.since)
		}

	default:
		if len(reports) < 2 {
			return nil, nil, fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
		}
		previous = reports[1]
	}
	return previous, current, nil
}

// runComparison compares two saved scans and prints the result.
func runComparison(ctx context.Context, out io.Writer, db *database.HistoryDB, opts *compareOptions) error {
	previous, current, err := selectReports(ctx, db, opts)
	if err != nil {
		return err
	}

	result := compareReports(previous, current)
	switch {
	case opts.jsonOutput:
		return outputComparisonJSON(out, result)
	case opts.markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// ComparisonResult holds the result of comparing two scan reports.
type ComparisonResult struct {
	// URL is the compared page.
	URL string `json:"url"`

	// PreviousScan summarizes the earlier scan.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan summarizes the later scan.
	CurrentScan ScanMetadata `json:"current_scan"`

	// NewFindings are in the current scan only.
	NewFindings []model.ContrastFinding `json:"new_findings,omitempty"`

	// ResolvedFindings are in the previous scan only.
	ResolvedFindings []model.ContrastFinding `json:"resolved_findings,omitempty"`

	// RatioChanges lists findings present in both scans whose ratio changed.
	RatioChanges []RatioChange `json:"ratio_changes,omitempty"`

	// UnchangedCount is the number of findings present in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// Trend is "improved", "worsened" or "unchanged".
	Trend string `json:"trend"`
}

// ScanMetadata summarizes one side of a comparison.
type ScanMetadata struct {
	DateScanned    time.Time `json:"date_scanned"`
	Renderer       string    `json:"renderer"`
	Viewport       string    `json:"viewport"`
	TotalFindings  int       `json:"total_findings"`
	FailingAA      int       `json:"failing_aa"`
	FailingAAAOnly int       `json:"failing_aaa_only"`
	WorstRatio     float64   `json:"worst_ratio"`
}

// RatioChange is a finding whose contrast ratio moved between scans.
type RatioChange struct {
	Tag      string  `json:"tag"`
	Text     string  `json:"text"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// Delta returns the change in ratio; positive means more contrast.
func (c RatioChange) Delta() float64 {
	return c.Current - c.Previous
}

func newScanMetadata(r *model.ScanReport) ScanMetadata {
	s := r.Summary()
	return ScanMetadata{
		DateScanned:    r.DateScanned,
		Renderer:       r.Renderer,
		Viewport:       r.Viewport,
		TotalFindings:  s.Total,
		FailingAA:      s.FailingAA,
		FailingAAAOnly: s.FailingAAAOnly,
		WorstRatio:     s.WorstRatio,
	}
}

// compareReports compares two scan reports. Findings keep document order.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		URL:          current.URL,
		PreviousScan: newScanMetadata(previous),
		CurrentScan:  newScanMetadata(current),
	}

	previousFindings := make(map[string]model.ContrastFinding, len(previous.Findings))
	for _, f := range previous.Findings {
		previousFindings[f.Key()] = f
	}
	currentKeys := make(map[string]bool, len(current.Findings))

	for _, f := range current.Findings {
		key := f.Key()
		currentKeys[key] = true

		before, existed := previousFindings[key]
		if !existed {
			result.NewFindings = append(result.NewFindings, f)
			continue
		}
		result.UnchangedCount++
		if math.Abs(f.Ratio-before.Ratio) >= ratioChangeEpsilon {
			result.RatioChanges = append(result.RatioChanges, RatioChange{
				Tag:      f.Tag,
				Text:     f.Text,
				Previous: before.DisplayRatio(),
				Current:  f.DisplayRatio(),
			})
		}
	}

	for _, f := range previous.Findings {
		if !currentKeys[f.Key()] {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	sort.SliceStable(result.RatioChanges, func(i, j int) bool {
		return result.RatioChanges[i].Delta() < result.RatioChanges[j].Delta()
	})

	result.Trend = calculateTrend(result.PreviousScan, result.CurrentScan)
	return result
}

// calculateTrend weighs AA failures above AAA-only failures.
func calculateTrend(previous, current ScanMetadata) string {
	previousScore := previous.FailingAA*10 + previous.FailingAAAOnly
	currentScore := current.FailingAA*10 + current.FailingAAAOnly

	switch {
	case currentScore < previousScore:
		return trendImproved
	case currentScore > previousScore:
		return trendWorsened
	default:
		return trendUnchanged
	}
}

func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Contrast Comparison: " + result.URL)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Trend:** %s", formatTrend(result.Trend))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", result.PreviousScan.DateScanned.Format("2006-01-02 15:04"), result.CurrentScan.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Fails AA", strconv.Itoa(result.PreviousScan.FailingAA), strconv.Itoa(result.CurrentScan.FailingAA),
				formatDelta(result.CurrentScan.FailingAA - result.PreviousScan.FailingAA)},
			{"Fails AAA only", strconv.Itoa(result.PreviousScan.FailingAAAOnly), strconv.Itoa(result.CurrentScan.FailingAAAOnly),
				formatDelta(result.CurrentScan.FailingAAAOnly - result.PreviousScan.FailingAAAOnly)},
			{"**Total**", "**" + strconv.Itoa(result.PreviousScan.TotalFindings) + "**", "**" + strconv.Itoa(result.CurrentScan.TotalFindings) + "**",
				"**" + formatDelta(result.CurrentScan.TotalFindings-result.PreviousScan.TotalFindings) + "**"},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.NewFindings))
		for _, f := range result.NewFindings {
			items = append(items, fmt.Sprintf("**[%s]** `<%s>` %q %.2f:1", f.Severity, f.Tag, f.Text, f.DisplayRatio()))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, 0, len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			items = append(items, fmt.Sprintf("~~**[%s]** `<%s>` %q~~", f.Severity, f.Tag, f.Text))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.RatioChanges) > 0 {
		md.H2(fmt.Sprintf("Ratio Changes (%d)", len(result.RatioChanges)))
		md.PlainText("")
		rows := make([][]string, 0, len(result.RatioChanges))
		for _, c := range result.RatioChanges {
			rows = append(rows, []string{
				"`<" + c.Tag + ">`",
				strings.ReplaceAll(c.Text, "|", "\\|"),
				fmt.Sprintf("%.2f", c.Previous),
				fmt.Sprintf("%.2f", c.Current),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Element", "Text", "Previous", "Current"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings present in both scans*", result.UnchangedCount)
	}

	return md.Build()
}

func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Contrast Comparison: %s\n", result.URL)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "\nTrend: %s\n", formatTrend(result.Trend))

	fmt.Fprintf(&sb, "\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current scan:  %s\n", result.CurrentScan.DateScanned.Local().Format("2006-01-02 15:04:05"))

	sb.WriteString("\nFindings Summary:\n")
	fmt.Fprintf(&sb, "  %-16s  %-10s  %-10s  %-10s\n", "Result", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 50) + "\n")
	fmt.Fprintf(&sb, "  %-16s  %-10d  %-10d  %-10s\n", "Fails AA",
		result.PreviousScan.FailingAA, result.CurrentScan.FailingAA,
		formatDelta(result.CurrentScan.FailingAA-result.PreviousScan.FailingAA))
	fmt.Fprintf(&sb, "  %-16s  %-10d  %-10d  %-10s\n", "Fails AAA only",
		result.PreviousScan.FailingAAAOnly, result.CurrentScan.FailingAAAOnly,
		formatDelta(result.CurrentScan.FailingAAAOnly-result.PreviousScan.FailingAAAOnly))
	sb.WriteString("  " + strings.Repeat("-", 50) + "\n")
	fmt.Fprintf(&sb, "  %-16s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousScan.TotalFindings, result.CurrentScan.TotalFindings,
		formatDelta(result.CurrentScan.TotalFindings-result.PreviousScan.TotalFindings))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(&sb, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(&sb, "  [+] [%s] <%s> %q %.2f:1 (%s on %s)\n",
				f.Severity, f.Tag, f.Text, f.DisplayRatio(), f.Foreground.Hex(), f.Background.Hex())
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(&sb, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(&sb, "  [-] [%s] <%s> %q\n", f.Severity, f.Tag, f.Text)
		}
	}

	if len(result.RatioChanges) > 0 {
		fmt.Fprintf(&sb, "\nRatio Changes (%d):\n", len(result.RatioChanges))
		for _, c := range result.RatioChanges {
			fmt.Fprintf(&sb, "  [~] <%s> %q %.2f:1 -> %.2f:1\n", c.Tag, c.Text, c.Previous, c.Current)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func formatTrend(trend string) string {
	switch trend {
	case trendImproved:
		return "IMPROVED (fewer contrast failures)"
	case trendWorsened:
		return "WORSENED (more contrast failures)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contrastscan/internal/config"
	"github.com/nao1215/contrastscan/internal/database"
	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/pipeline"
	"github.com/nao1215/contrastscan/internal/report"
	"github.com/nao1215/contrastscan/internal/scanner"
)

var (
	// ErrThresholdExceeded is returned when findings reach the --fail-on level.
	ErrThresholdExceeded = errors.New("contrast findings reached the --fail-on level")

	// ErrScanFailed is returned when at least one page could not be scanned.
	ErrScanFailed = errors.New("one or more pages could not be scanned")
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan URL...",
		Short: "Check the color contrast of web pages",
		Long: `Scan renders each page and checks every visible text element (headings,
paragraphs, links, list items, table cells, labels, buttons and text inputs)
against WCAG 2.x contrast thresholds:

  AA  (1.4.3): 4.5:1 for normal text, 3:1 for large text
  AAA (1.4.6): 7:1 for normal text, 4.5:1 for large text

Large text is at least 18.66px, or at least 14px at font-weight 700.
Every element below AAA is reported; elements below AA are marked HIGH.

Examples:
  # Scan a single page
  contrastscan scan https://example.com/

  # Scan several pages, four at a time, with a mobile viewport
  contrastscan scan --viewport-width 375 --viewport-height 667 \
    https://example.com/ https://example.com/pricing

  # Use the browserless renderer and write a Markdown report
  contrastscan scan --renderer static --markdown -o report.md https://example.com/

  # Fail a CI job only when text is below AA, and keep history for 'compare'
  contrastscan scan --fail-on aa --save https://example.com/

Configuration file (.contrastscan) example:
  defaults:
    settleDelay: 2s
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignoreSelectors:
        - "#third-party-chat"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addRenderFlags(cmd)

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages scanned concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .contrastscan in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("show-markup", false,
		"Include each element's markup in the text report")

	cmd.Flags().String("fail-on", config.FailOnAA,
		"Exit with status 2 when findings reach this level: aa, aaa or none")

	cmd.Flags().BoolP("save", "s", false,
		"Save results to the scan history for 'contrastscan compare'")
	cmd.Flags().String("db-dir", "",
		"Scan history directory (default: XDG data directory)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from cobra command flags and the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if err := readRenderFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	flags := cmd.Flags()

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ShowMarkup, err = flags.GetBool("show-markup"); err != nil {
		return nil, err
	}
	if cfg.FailOn, err = flags.GetString("fail-on"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// runScan scans every target, writes the report and applies the --fail-on policy.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"renderer", cfg.Renderer,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var history *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		history, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open scan history: %w", err)
		}
		defer history.Close()
		logger.Debug("scan history opened", "path", history.Path())
	}

	factory, err := newPipelineFactory(cfg, history, logger)
	if err != nil {
		return err
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	reports, batchErr := bp.ProcessBatch(ctx, cfg.Targets)
	logger.Info("scan finished", "elapsed", time.Since(startTime).Round(time.Millisecond))

	if err := outputReports(cfg, out, reports); err != nil {
		return err
	}
	if batchErr != nil {
		return fmt.Errorf("scan interrupted: %w", batchErr)
	}
	return scanOutcome(cfg.FailOn, reports)
}

// newPipelineFactory creates one checker per distinct target up front, so
// that configuration problems surface before any page is loaded.
func newPipelineFactory(cfg *config.Config, history *database.HistoryDB, logger *slog.Logger) (func(string) *pipeline.Pipeline, error) {
	checkers := make(map[string]*scanner.Checker, len(cfg.Targets))
	for _, target := range cfg.Targets {
		if _, ok := checkers[target]; ok {
			continue
		}
		checker, err := newChecker(cfg, target, logger)
		if err != nil {
			return nil, err
		}
		checkers[target] = checker
	}

	return func(url string) *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddStep(pipeline.NewScanStep(checkers[url]))
		if history != nil {
			p.AddStep(pipeline.NewHistoryStep(history, pipeline.WithHistoryLogger(logger)))
		}
		return p
	}, nil
}

// outputReports writes reports in the requested format to the report file or out.
func outputReports(cfg *config.Config, out io.Writer, reports []*model.ScanReport) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may quote page content behind a login; keep them private.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := newReportWriter(cfg, out)
	var err error
	if len(reports) == 1 {
		_, err = writer.Write(reports[0])
	} else {
		_, err = writer.WriteAll(reports)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithMarkup(cfg.ShowMarkup))
	}
}

// scanOutcome turns the reports into the command result: a failed scan
// outranks findings, and findings only count at or above failOn.
func scanOutcome(failOn string, reports []*model.ScanReport) error {
	failed := 0
	for _, r := range reports {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScanFailed, failed, len(reports))
	}
	if exceedsFailOn(failOn, reports) {
		return ErrThresholdExceeded
	}
	return nil
}

// exceedsFailOn reports whether any finding reaches the given level.
func exceedsFailOn(level string, reports []*model.ScanReport) bool {
	for _, r := range reports {
		for _, f := range r.Findings {
			switch level {
			case config.FailOnAAA:
				return true
			case config.FailOnAA:
				if !f.PassesAA {
					return true
				}
			}
		}
	}
	return false
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/scanner"
)

// ScanStep runs the contrast scan for the report's URL.
type ScanStep struct {
	checker *scanner.Checker
}

// NewScanStep creates a step that scans with checker.
func NewScanStep(checker *scanner.Checker) *ScanStep {
	return &ScanStep{checker: checker}
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return "contrast_scan"
}

// Do scans report.URL and replaces the report's contents with the result.
// A failed scan leaves the report in the failed state and returns the
// *scanner.CheckError.
func (s *ScanStep) Do(ctx context.Context, report *model.ScanReport) error {
	result, err := s.checker.Scan(ctx, report.URL)
	if result != nil {
		*report = *result
	}
	return err
}

// ReportSaver persists scan reports.
type ReportSaver interface {
	SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error)
}

// HistoryStep saves completed scans so they can be compared later.
type HistoryStep struct {
	saver  ReportSaver
	logger *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		s.logger = logger
	}
}

// NewHistoryStep creates a step that saves reports with saver.
func NewHistoryStep(saver ReportSaver, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{
		saver:  saver,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "save_history"
}

// Do saves the report unless the scan failed.
func (s *HistoryStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.Failed() {
		s.logger.Debug("not saving failed scan", "url", report.URL)
		return nil
	}
	id, err := s.saver.SaveScanReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save scan history: %w", err)
	}
	s.logger.Debug("scan saved", "url", report.URL, "id", id)
	return nil
}

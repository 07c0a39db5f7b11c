package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/contrastscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of pages scanned at once.
const DefaultConcurrency = 4

// BatchProcessor scans several URLs concurrently.
// Each URL gets a fresh pipeline built for it by the factory, so scans
// share nothing mutable and per-site settings apply.
type BatchProcessor struct {
	pipelineFactory func(url string) *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(url string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans urls and returns one report per URL in input order.
// A failed scan does not stop the others; its error is in its report.
// The returned error is only non-nil when the batch was cancelled; every
// URL still has a report then.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.ScanReport, error) {
	results := make([]*model.ScanReport, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(report *model.ScanReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback scans urls and calls callback as each scan
// completes. The callback runs on the scanning goroutine and must be safe
// for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(report *model.ScanReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			// A cancelled context still yields a failed report for the URL.
			bp.logger.Info("scanning page",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			report := model.NewScanReport(url)
			if err := bp.pipelineFactory(url).Execute(ctx, report); err != nil {
				// Recorded in the report; other scans continue.
				bp.logger.Warn("scan failed", "url", url, "error", err)
			} else {
				bp.logger.Info("scan completed", "url", url, "findings", len(report.Findings))
			}

			callback(report, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	bp.logger.Info("batch processing complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}

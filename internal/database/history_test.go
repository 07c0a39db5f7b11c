package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func sampleReport(url string, findings ...model.ContrastFinding) *model.ScanReport {
	r := model.NewScanReport(url)
	r.Renderer = "static"
	r.Viewport = "1024x768"
	r.State = "done"
	r.Findings = append(r.Findings, findings...)
	return r
}

func grayFinding(text string, ratio float64, passesAA bool) model.ContrastFinding {
	return model.ContrastFinding{
		Tag:        "p",
		Text:       text,
		Element:    "<p>" + text + "</p>",
		Foreground: color.MustParse("#767676"),
		Background: color.White,
		Ratio:      ratio,
		PassesAA:   passesAA,
		Severity:   model.SeverityFor(passesAA),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Errorf("unexpected defaults %+v", opts)
	}
}

// TestScanReports tests saving and loading reports.
func TestScanReports(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	url := "https://example.com/"

	if r, err := db.GetLatestScanReport(ctx, url); err != nil || r != nil {
		t.Fatalf("expected no report, got %v, %v", r, err)
	}

	first := sampleReport(url, grayFinding("Old", 2.5, false))
	firstID, err := db.SaveScanReport(ctx, first)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	second := sampleReport(url, grayFinding("New", 4.54, true))
	secondID, err := db.SaveScanReport(ctx, second)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if secondID <= firstID {
		t.Errorf("expected increasing IDs, got %d then %d", firstID, secondID)
	}

	latest, err := db.GetLatestScanReport(ctx, url)
	if err != nil {
		t.Fatalf("failed to get latest report: %v", err)
	}
	if latest == nil || len(latest.Findings) != 1 || latest.Findings[0].Text != "New" {
		t.Fatalf("unexpected latest report %+v", latest)
	}
	if latest.Findings[0].Severity != model.SeverityMedium {
		t.Errorf("severity did not survive storage: %v", latest.Findings[0].Severity)
	}

	byID, err := db.GetScanReportByID(ctx, firstID)
	if err != nil {
		t.Fatalf("failed to get report by ID: %v", err)
	}
	if byID == nil || byID.Findings[0].Text != "Old" {
		t.Errorf("unexpected report %+v", byID)
	}

	missing, err := db.GetScanReportByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("expected nil report for unknown ID, got %v, %v", missing, err)
	}
}

// TestGetScanHistory tests history ordering and URL listing.
func TestGetScanHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := db.SaveScanReport(ctx, sampleReport("https://a.example/", grayFinding(text, 3, false))); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	if _, err := db.SaveScanReport(ctx, sampleReport("https://b.example/")); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	history, err := db.GetScanHistory(ctx, "https://a.example/")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(history))
	}
	if history[0].Findings[0].Text != "three" || history[2].Findings[0].Text != "one" {
		t.Error("expected newest report first")
	}

	urls, err := db.ListScannedURLs(ctx)
	if err != nil {
		t.Fatalf("failed to list URLs: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example/" || urls[1] != "https://b.example/" {
		t.Errorf("unexpected URLs %v", urls)
	}
}

// TestGetScanHistoryWithMetadata tests metadata retrieval.
func TestGetScanHistoryWithMetadata(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	url := "https://example.com/"

	report := sampleReport(url,
		grayFinding("a", 2.0, false),
		grayFinding("b", 4.6, true),
	)
	report.DateScanned = time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	if _, err := db.SaveScanReport(ctx, report); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	metas, err := db.GetScanHistoryWithMetadata(ctx, url)
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(metas))
	}
	meta := metas[0]
	if meta.URL != url || meta.Renderer != "static" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Summary.Total != 2 || meta.Summary.FailingAA != 1 || meta.Summary.FailingAAAOnly != 1 {
		t.Errorf("unexpected summary %+v", meta.Summary)
	}
	if !meta.Timestamp.Equal(report.DateScanned) {
		t.Errorf("expected timestamp %v, got %v", report.DateScanned, meta.Timestamp)
	}
}

// TestParseTimestamp tests the supported timestamp formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []string{"2025-01-02 03:04:05", "2025-01-02T03:04:05Z", "2025-01-02T03:04:05+00:00"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if !parseTimestamp("yesterday").IsZero() {
		t.Error("expected zero time for unknown format")
	}
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/contrastscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "contrastscan.db"

// timestampLayout is how scan times are stored.
const timestampLayout = "2006-01-02 15:04:05"

// HistoryDB stores scan reports for later comparison.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per saved scan of a URL
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		renderer TEXT,
		viewport TEXT,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_url ON scan_reports(url);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScanReport stores report and returns its ID.
func (h *HistoryDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	scanned := report.DateScanned
	if scanned.IsZero() {
		scanned = time.Now()
	}

	query := `
	INSERT INTO scan_reports (url, timestamp, renderer, viewport, report_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := h.db.ExecContext(ctx, query,
		report.URL,
		scanned.UTC().Format(timestampLayout),
		report.Renderer,
		report.Viewport,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}
	return result.LastInsertId()
}

// GetLatestScanReport returns the most recently saved report for url, or nil
// if there is none.
func (h *HistoryDB) GetLatestScanReport(ctx context.Context, url string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE url = ?
	ORDER BY id DESC
	LIMIT 1
	`
	return h.queryReport(ctx, query, url)
}

// GetScanReportByID returns the report with the given ID, or nil if there is none.
func (h *HistoryDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE id = ?
	`
	return h.queryReport(ctx, query, id)
}

func (h *HistoryDB) queryReport(ctx context.Context, query string, arg any) (*model.ScanReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListScannedURLs returns every URL with at least one saved scan.
func (h *HistoryDB) ListScannedURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT url FROM scan_reports
	ORDER BY url
	`
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// GetScanHistory returns every saved report for url, newest first.
func (h *HistoryDB) GetScanHistory(ctx context.Context, url string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE url = ?
	ORDER BY id DESC
	`
	rows, err := h.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// ScanReportMetadata describes a saved scan without loading its findings.
type ScanReportMetadata struct {
	// ID is the unique identifier of the scan report in the database.
	ID int64 `json:"id"`

	// URL is the scanned URL.
	URL string `json:"url"`

	// Timestamp is when the scan was performed.
	Timestamp time.Time `json:"timestamp"`

	// Renderer is the engine that rendered the page.
	Renderer string `json:"renderer"`

	// Summary holds the finding counts of the scan.
	Summary model.Summary `json:"summary"`
}

// GetScanHistoryWithMetadata returns metadata of every saved scan of url, newest first.
func (h *HistoryDB) GetScanHistoryWithMetadata(ctx context.Context, url string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, url, timestamp, renderer, summary_json
	FROM scan_reports
	WHERE url = ?
	ORDER BY id DESC
	`
	rows, err := h.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var (
			meta        ScanReportMetadata
			timestamp   string
			renderer    sql.NullString
			summaryJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.URL, &timestamp, &renderer, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Renderer = renderer.String
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = model.Summary{}
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a stored timestamp, returning the zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

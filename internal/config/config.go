package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "contrastscan"

	// RendererChrome renders pages in headless Chrome.
	RendererChrome = "chrome"

	// RendererStatic computes styles from the fetched HTML and CSS without a browser.
	RendererStatic = "static"

	// DefaultRenderer is the renderer used when none is configured.
	DefaultRenderer = RendererChrome

	// DefaultViewportWidth and DefaultViewportHeight describe a desktop
	// window, wide enough for responsive layouts to select desktop rules.
	DefaultViewportWidth  = 1024
	DefaultViewportHeight = 768

	// DefaultSettleDelay is the pause between the load event and reading
	// the page, so late stylesheets and web fonts can apply.
	DefaultSettleDelay = time.Second

	// DefaultTimeout bounds navigation of a single page.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of pages scanned concurrently.
	// Each chrome surface is a browser process, so this stays small.
	DefaultBatchSize = 4

	// DefaultMaxBodySize limits the HTML and CSS read by the static renderer.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Fail-on levels select which findings make the scan command exit non-zero.
const (
	// FailOnAA fails when any finding does not meet AA.
	FailOnAA = "aa"
	// FailOnAAA fails on any finding.
	FailOnAAA = "aaa"
	// FailOnNone never fails because of findings.
	FailOnNone = "none"
)

// Config holds all configuration options for contrastscan.
// It is populated from CLI flags and the optional configuration file and is
// passed down explicitly instead of living in global state.
type Config struct {
	// Targets is the list of page URLs to scan.
	Targets []string

	// Renderer selects how pages are rendered: "chrome" or "static".
	Renderer string

	// ChromePath overrides the Chrome binary. Empty means auto-detect.
	ChromePath string

	// ViewportWidth and ViewportHeight set the rendering surface size in CSS pixels.
	// Media queries are evaluated against this size.
	ViewportWidth  int
	ViewportHeight int

	// SettleDelay is the pause after the page load event before the
	// document is inspected. Zero disables it.
	SettleDelay time.Duration

	// Timeout bounds navigation of each page.
	Timeout time.Duration

	// BatchSize is the number of concurrent page scans when several targets are given.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .contrastscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the configuration file.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of the human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables GitHub Flavored Markdown output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// ShowMarkup includes each element's markup in the human-readable report.
	ShowMarkup bool

	// FailOn selects the findings that produce a non-zero exit status:
	// "aa", "aaa" or "none".
	FailOn string

	// Flatten composites translucent colors onto their backdrop before the
	// contrast ratio is computed.
	Flatten bool

	// SaveToDB stores each successful scan in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory (~/.local/share/contrastscan on Linux).
	DBDir string

	// ProxyAddress is an optional SOCKS5 proxy for page loads in "host:port"
	// form, for example a local Tor daemon.
	ProxyAddress string

	// UserAgent overrides the renderer's User-Agent. Empty keeps the default.
	UserAgent string

	// MaxBodySize is the largest response body in bytes the static renderer reads.
	// Zero means the default.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Renderer:       DefaultRenderer,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		SettleDelay:    DefaultSettleDelay,
		Timeout:        DefaultTimeout,
		BatchSize:      DefaultBatchSize,
		FailOn:         FailOnAA,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for contrastscan.
// On Linux: ~/.local/share/contrastscan
// On macOS: ~/Library/Application Support/contrastscan
// On Windows: %LOCALAPPDATA%\contrastscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contrastscan.
// On Linux: ~/.config/contrastscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for contrastscan.
// On Linux: ~/.cache/contrastscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	switch c.Renderer {
	case RendererChrome, RendererStatic:
	default:
		return ErrInvalidRenderer
	}

	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return ErrInvalidViewport
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch c.FailOn {
	case FailOnAA, FailOnAAA, FailOnNone:
	default:
		return ErrInvalidFailOn
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// Package mcpserver exposes the color contrast checker to MCP clients such
// as coding assistants, over stdio or HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/nao1215/contrastscan/internal/database"
	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/scanner"
)

// Build information reported to clients. The CLI overwrites Version.
var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// Checker scans one page. *scanner.Checker implements it.
type Checker interface {
	CheckColorContrast(ctx context.Context, url string) ([]model.ContrastFinding, error)
	Scan(ctx context.Context, url string) (*model.ScanReport, error)
}

// HistoryReader reads saved scans. *database.HistoryDB implements it.
type HistoryReader interface {
	GetScanHistoryWithMetadata(ctx context.Context, url string) ([]database.ScanReportMetadata, error)
}

// Server is an MCP server with contrast tools registered.
type Server struct {
	mcpServer *mcp.Server
	checker   Checker
	history   HistoryReader
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory registers the get_scan_history tool backed by h.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// URLArgs are the arguments of the page tools.
type URLArgs struct {
	URL string `json:"url" jsonschema:"description=Absolute http or https URL of the page to check"`
}

// ScanResult is returned by the scan_page tool.
type ScanResult struct {
	Summary model.Summary     `json:"summary"`
	Report  *model.ScanReport `json:"report"`
}

// NewServer creates a Server that scans pages with checker.
func NewServer(checker Checker, opts ...Option) *Server {
	info := mcp.ServerInfo{
		Name:    "contrastscan",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("contrastscan MCP Server"),
			mcp.WithDescription("contrastscan renders web pages and reports text whose color contrast fails WCAG 2.x AA or AAA."),
			mcp.WithWebsiteURL("https://github.com/nao1215/contrastscan"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Call check_color_contrast with a page URL to list low-contrast text. Findings with passes_aa=false violate WCAG 1.4.3 and should be fixed first."),
		),
		checker: checker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("check_color_contrast").
		Description("Render a web page and return every text element whose color contrast fails WCAG AAA, with its ratio, colors and AA result").
		Handler(s.handleCheckColorContrast)

	s.mcpServer.Tool("scan_page").
		Description("Render a web page and return the full scan report, including a summary and element counts").
		Handler(s.handleScanPage)

	if s.history != nil {
		s.mcpServer.Tool("get_scan_history").
			Description("List saved scans of a page, newest first, with finding counts").
			Handler(s.handleGetScanHistory)
	}
}

// mcpErr turns an error into the message shown to the client. Only the
// user-facing text of a *scanner.CheckError leaves the server.
func mcpErr(err error, fallback string) error {
	var checkErr *scanner.CheckError
	if errors.As(err, &checkErr) {
		return fmt.Errorf("%s", checkErr.Error())
	}
	return fmt.Errorf("%s", fallback)
}

func validateArgs(args URLArgs) error {
	if strings.TrimSpace(args.URL) == "" {
		return errors.New("url is required")
	}
	return nil
}

func (s *Server) handleCheckColorContrast(ctx context.Context, args URLArgs) (any, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	findings, err := s.checker.CheckColorContrast(ctx, args.URL)
	if err != nil {
		s.logger.Warn("contrast check failed", "url", args.URL, "error", err)
		return nil, mcpErr(err, "Failed to analyze color contrast. Please check the URL and try again.")
	}
	if findings == nil {
		findings = []model.ContrastFinding{}
	}
	return findings, nil
}

func (s *Server) handleScanPage(ctx context.Context, args URLArgs) (any, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	report, err := s.checker.Scan(ctx, args.URL)
	if err != nil {
		s.logger.Warn("scan failed", "url", args.URL, "error", err)
		return nil, mcpErr(err, "Failed to analyze color contrast. Please check the URL and try again.")
	}
	return &ScanResult{Summary: report.Summary(), Report: report}, nil
}

func (s *Server) handleGetScanHistory(ctx context.Context, args URLArgs) (any, error) {
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	history, err := s.history.GetScanHistoryWithMetadata(ctx, args.URL)
	if err != nil {
		s.logger.Warn("history lookup failed", "url", args.URL, "error", err)
		return nil, mcpErr(err, "Failed to read scan history.")
	}
	if history == nil {
		history = []database.ScanReportMetadata{}
	}
	return history, nil
}

// ServeStdio serves MCP over stdin and stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP serves MCP over HTTP on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/contrastscan/internal/config"
	"github.com/nao1215/contrastscan/internal/database"
	"github.com/nao1215/contrastscan/internal/mcpserver"
	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/scanner"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the contrast checker over the Model Context Protocol",
		Long: `Start a Model Context Protocol server that exposes the contrast checker
as tools for AI assistants and editors.

Tools:
  check_color_contrast  Return the contrast findings of a page
  scan_page             Return the full scan report of a page
  get_scan_history      List saved scans of a page (with --history)

The server speaks MCP over stdio unless --http is given.

Examples:
  # Serve over stdio
  contrastscan mcp

  # Serve over HTTP with the static renderer
  contrastscan mcp --http 127.0.0.1:8080 --renderer static`,
		Args: cobra.NoArgs,
		RunE: runMCPCmd,
	}

	addRenderFlags(cmd)
	cmd.Flags().String("http", "",
		"Serve MCP over HTTP on this address instead of stdio")
	cmd.Flags().StringP("config", "c", "",
		"Path to config file (default: .contrastscan in current or home directory)")
	cmd.Flags().Bool("history", false,
		"Expose saved scan history through the get_scan_history tool")
	cmd.Flags().String("db-dir", "",
		"Scan history directory (default: XDG data directory)")

	return cmd
}

func runMCPCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if err := readRenderFlags(cmd, cfg); err != nil {
		return err
	}
	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("http")
	if err != nil {
		return err
	}
	withHistory, err := cmd.Flags().GetBool("history")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return err
	}

	logger := newLogger(cmd)

	mcpserver.Version = getVersion()
	mcpserver.BuildCommit = getCommit()
	mcpserver.BuildDate = getDate()

	opts := []mcpserver.Option{mcpserver.WithLogger(logger)}
	if withHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open scan history: %w", err)
		}
		defer db.Close()
		opts = append(opts, mcpserver.WithHistory(db))
	}

	srv := mcpserver.NewServer(newSiteCheckers(cfg, logger), opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		logger.Info("serving MCP over HTTP", "addr", addr)
		return srv.ServeHTTP(ctx, addr)
	}
	return srv.ServeStdio(ctx)
}

// siteCheckers builds one checker per site on first use so every page is
// rendered with its site's cookie, headers and viewport.
type siteCheckers struct {
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	checkers map[string]*scanner.Checker
}

func newSiteCheckers(cfg *config.Config, logger *slog.Logger) *siteCheckers {
	return &siteCheckers{
		cfg:      cfg,
		logger:   logger,
		checkers: make(map[string]*scanner.Checker),
	}
}

func (s *siteCheckers) checkerFor(pageURL string) (*scanner.Checker, error) {
	key := config.SiteKey(pageURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.checkers[key]; ok {
		return c, nil
	}
	c, err := newChecker(s.cfg, pageURL, s.logger)
	if err != nil {
		return nil, err
	}
	s.checkers[key] = c
	return c, nil
}

// CheckColorContrast implements mcpserver.Checker.
func (s *siteCheckers) CheckColorContrast(ctx context.Context, pageURL string) ([]model.ContrastFinding, error) {
	c, err := s.checkerFor(pageURL)
	if err != nil {
		return nil, err
	}
	return c.CheckColorContrast(ctx, pageURL)
}

// Scan implements mcpserver.Checker.
func (s *siteCheckers) Scan(ctx context.Context, pageURL string) (*model.ScanReport, error) {
	c, err := s.checkerFor(pageURL)
	if err != nil {
		return nil, err
	}
	return c.Scan(ctx, pageURL)
}

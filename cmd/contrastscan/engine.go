package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contrastscan/internal/config"
	"github.com/nao1215/contrastscan/internal/render"
	"github.com/nao1215/contrastscan/internal/render/chrome"
	"github.com/nao1215/contrastscan/internal/render/static"
	"github.com/nao1215/contrastscan/internal/scanner"
)

// addRenderFlags registers the flags that control page rendering. They are
// shared by the scan and mcp commands.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("renderer", "r", config.DefaultRenderer,
		"Rendering engine: chrome (headless browser) or static (HTML and CSS only)")
	cmd.Flags().String("chrome-path", "",
		"Chrome or Chromium binary (default: auto-detect)")
	cmd.Flags().Int("viewport-width", config.DefaultViewportWidth,
		"Viewport width in CSS pixels")
	cmd.Flags().Int("viewport-height", config.DefaultViewportHeight,
		"Viewport height in CSS pixels")
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Wait after the page load event before reading styles")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Navigation timeout for each page")
	cmd.Flags().Bool("flatten", false,
		"Composite translucent colors onto their backdrop before measuring")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for page loads (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("user-agent", "",
		"Override the User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest HTML or CSS response the static renderer reads, in bytes")
}

// readRenderFlags copies the rendering flags into cfg.
func readRenderFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	flags := cmd.Flags()

	if cfg.Renderer, err = flags.GetString("renderer"); err != nil {
		return err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return err
	}
	if cfg.ViewportWidth, err = flags.GetInt("viewport-width"); err != nil {
		return err
	}
	if cfg.ViewportHeight, err = flags.GetInt("viewport-height"); err != nil {
		return err
	}
	if cfg.SettleDelay, err = flags.GetDuration("settle-delay"); err != nil {
		return err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.Flatten, err = flags.GetBool("flatten"); err != nil {
		return err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return err
	}
	return nil
}

// renderSettings are the effective rendering options for one site: the
// global configuration with the site's overrides applied.
type renderSettings struct {
	renderer        string
	viewport        render.Viewport
	settleDelay     time.Duration
	cookie          string
	headers         map[string]string
	ignoreSelectors []string
}

func resolveRenderSettings(cfg *config.Config, site config.SiteConfig) renderSettings {
	s := renderSettings{
		renderer:        cfg.Renderer,
		viewport:        render.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		settleDelay:     cfg.SettleDelay,
		cookie:          site.Cookie,
		headers:         site.Headers,
		ignoreSelectors: site.IgnoreSelectors,
	}
	if site.Renderer != "" {
		s.renderer = site.Renderer
	}
	if site.ViewportWidth > 0 {
		s.viewport.Width = site.ViewportWidth
	}
	if site.ViewportHeight > 0 {
		s.viewport.Height = site.ViewportHeight
	}
	if site.SettleDelay > 0 {
		s.settleDelay = site.SettleDelay
	}
	return s
}

// siteConfigFor returns the merged site configuration for target.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(target)
}

// newEngine creates the rendering engine for one site.
func newEngine(cfg *config.Config, s renderSettings, logger *slog.Logger) (render.Engine, error) {
	switch s.renderer {
	case config.RendererChrome:
		opts := []chrome.Option{
			chrome.WithExecPath(cfg.ChromePath),
			chrome.WithHeaders(s.headers),
			chrome.WithCookie(s.cookie),
			chrome.WithIgnoreSelectors(s.ignoreSelectors),
			chrome.WithMarkupTags(scanner.TextTags),
			chrome.WithLogger(logger),
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, chrome.WithProxy("socks5://"+cfg.ProxyAddress))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, chrome.WithUserAgent(cfg.UserAgent))
		}
		return chrome.New(opts...), nil

	case config.RendererStatic:
		client, err := static.NewHTTPClient(static.ClientConfig{
			ProxyAddress: cfg.ProxyAddress,
			Timeout:      cfg.Timeout,
			Cookie:       s.cookie,
			Headers:      s.headers,
		})
		if err != nil {
			return nil, err
		}
		opts := []static.Option{
			static.WithHTTPClient(client),
			static.WithMaxBodySize(cfg.MaxBodySize),
			static.WithIgnoreSelectors(s.ignoreSelectors),
			static.WithMarkupTags(scanner.TextTags),
			static.WithLogger(logger),
		}
		if cfg.UserAgent != "" {
			opts = append(opts, static.WithUserAgent(cfg.UserAgent))
		}
		return static.New(opts...)

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidRenderer, s.renderer)
	}
}

// newChecker builds the engine, loader and checker for one target.
func newChecker(cfg *config.Config, target string, logger *slog.Logger) (*scanner.Checker, error) {
	settings := resolveRenderSettings(cfg, siteConfigFor(cfg, target))
	if err := settings.viewport.Validate(); err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s renderer for %s: %w", settings.renderer, target, err)
	}

	loader := render.NewLoader(engine,
		render.WithViewport(settings.viewport),
		render.WithSettleDelay(settings.settleDelay),
		render.WithNavigationTimeout(cfg.Timeout),
		render.WithLoaderLogger(logger),
	)
	return scanner.New(loader,
		scanner.WithLogger(logger),
		scanner.WithFlattenTranslucent(cfg.Flatten),
	), nil
}

// loadSiteConfigs loads the configuration file into cfg.SiteConfigs.
// An explicitly given path must exist; otherwise a missing file means no
// site settings.
func loadSiteConfigs(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case explicitConfigPath:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

package config

import (
	"maps"
	"net/url"
	"strings"
	"time"
)

// SiteConfig holds settings for the pages of one site.
type SiteConfig struct {
	// Cookie is sent with every request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in requests to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Renderer overrides the global renderer for the site.
	Renderer string `yaml:"renderer,omitempty"`

	// ViewportWidth and ViewportHeight override the global viewport.
	ViewportWidth  int `yaml:"viewportWidth,omitempty"`
	ViewportHeight int `yaml:"viewportHeight,omitempty"`

	// SettleDelay overrides the global settle delay, e.g. "2s".
	SettleDelay time.Duration `yaml:"settleDelay,omitempty"`

	// IgnoreSelectors are CSS selectors whose subtrees are not checked,
	// for example third-party widgets the site owner cannot change.
	IgnoreSelectors []string `yaml:"ignoreSelectors,omitempty"`
}

// File represents the structure of the .contrastscan configuration file.
type File struct {
	// Sites maps a host (e.g. "example.com") to its configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to all sites unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteKey returns the key used to look up a page in File.Sites: the
// lowercase host of the URL, without port. An unparsable URL is used as is.
func SiteKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(pageURL)
	}
	return strings.ToLower(u.Hostname())
}

// GetSiteConfig returns the configuration for a page URL or host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[SiteKey(target)]
	if !ok {
		siteConfig, ok = cf.Sites[target]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if siteConfig.Renderer != "" {
		result.Renderer = siteConfig.Renderer
	}
	if siteConfig.ViewportWidth != 0 {
		result.ViewportWidth = siteConfig.ViewportWidth
	}
	if siteConfig.ViewportHeight != 0 {
		result.ViewportHeight = siteConfig.ViewportHeight
	}
	if siteConfig.SettleDelay != 0 {
		result.SettleDelay = siteConfig.SettleDelay
	}
	if len(siteConfig.IgnoreSelectors) > 0 {
		result.IgnoreSelectors = siteConfig.IgnoreSelectors
	}
	return result
}

// Package log provides slog loggers that mask sensitive information.
//
// Pages behind a login are scanned with cookies and headers from the site
// configuration, and page URLs sometimes carry access tokens. The
// SecureHandler masks:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - values under keys that name secrets, tokens or sessions
//   - values that look like bearer tokens, JWTs or API keys
//   - URL passwords and sensitive query parameters
//
// Even in verbose mode, sensitive values are masked so that logs can be
// shared when reporting a scan problem.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("navigating",
//	    "url", "https://example.com/?token=abc", // query value masked
//	    "cookie", "session=abc123",              // masked
//	)
package log

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/nao1215/contrastscan/internal/dom"
)

// Default loader timings.
const (
	// DefaultSettleDelay gives asynchronous stylesheets and web fonts time to
	// apply after the load event. It is a heuristic, not a guarantee.
	DefaultSettleDelay = time.Second

	// DefaultNavigationTimeout bounds how long navigation may take.
	DefaultNavigationTimeout = 30 * time.Second
)

// Loader opens pages on surfaces created by an Engine.
// A Loader holds no per-page state and may be shared by concurrent scans.
type Loader struct {
	engine            Engine
	viewport          Viewport
	settleDelay       time.Duration
	navigationTimeout time.Duration
	logger            *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithViewport sets the surface size.
func WithViewport(vp Viewport) LoaderOption {
	return func(l *Loader) {
		l.viewport = vp
	}
}

// WithSettleDelay sets the delay between navigation and document access.
// Zero disables the delay.
func WithSettleDelay(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d >= 0 {
			l.settleDelay = d
		}
	}
}

// WithNavigationTimeout sets the navigation time limit.
func WithNavigationTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.navigationTimeout = d
		}
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader for the given engine.
func NewLoader(engine Engine, opts ...LoaderOption) *Loader {
	l := &Loader{
		engine:            engine,
		viewport:          DefaultViewport,
		settleDelay:       DefaultSettleDelay,
		navigationTimeout: DefaultNavigationTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Engine returns the engine the loader renders with.
func (l *Loader) Engine() Engine {
	return l.engine
}

// Viewport returns the surface size used for every page.
func (l *Loader) Viewport() Viewport {
	return l.viewport
}

// Open loads pageURL on a fresh surface and returns a session holding the
// rendered document. On error no session is returned and the surface, if
// one was allocated, has already been closed. The caller must Close the
// returned session.
func (l *Loader) Open(ctx context.Context, pageURL string) (*Session, error) {
	if err := validateURL(pageURL); err != nil {
		return nil, err
	}
	if err := l.viewport.Validate(); err != nil {
		return nil, err
	}

	surface, err := l.engine.NewSurface(ctx, l.viewport)
	if err != nil {
		return nil, wrapAs(ErrLoad, fmt.Errorf("failed to allocate %s surface: %w", l.engine.Name(), err))
	}
	session := &Session{url: pageURL, surface: surface, logger: l.logger}

	doc, err := l.load(ctx, surface, pageURL)
	if err != nil {
		if cerr := session.Close(); cerr != nil {
			l.logger.Debug("failed to close surface after load error", "url", pageURL, "error", cerr)
		}
		return nil, err
	}
	session.doc = doc
	return session, nil
}

// WithSession opens pageURL, calls fn with the session and closes the
// session on every exit path, including a panic in fn.
func (l *Loader) WithSession(ctx context.Context, pageURL string, fn func(*Session) error) (err error) {
	session, err := l.Open(ctx, pageURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(session)
}

func (l *Loader) load(ctx context.Context, surface Surface, pageURL string) (dom.Document, error) {
	started := time.Now()

	navigator := timeout.New[struct{}](timeout.Config{DefaultTimeout: l.navigationTimeout})
	_, err := navigator.Execute(ctx, l.navigationTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, surface.Navigate(ctx, pageURL)
	})
	if err != nil {
		return nil, wrapAs(ErrLoad, err)
	}
	l.logger.Debug("page navigated", "url", pageURL, "engine", l.engine.Name(), "elapsed", time.Since(started))

	if err := settle(ctx, l.settleDelay); err != nil {
		return nil, wrapAs(ErrLoad, err)
	}

	doc, err := surface.Document(ctx)
	if err != nil {
		return nil, wrapAs(ErrDocumentAccess, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: engine returned no document", ErrDocumentAccess)
	}
	return doc, nil
}

// settle waits for d or until ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// validateURL accepts absolute http and https URLs.
func validateURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %q: %w", ErrLoad, pageURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported URL scheme %q", ErrLoad, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL %q has no host", ErrLoad, pageURL)
	}
	return nil
}

// wrapAs makes err match sentinel with errors.Is without wrapping twice.
func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Session is one opened page. It owns its surface until Close.
type Session struct {
	url     string
	surface Surface
	doc     dom.Document
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mu        sync.Mutex
}

// URL returns the URL the session was opened with.
func (s *Session) URL() string {
	return s.url
}

// Document returns the rendered document. Elements obtained from it must
// not be used after Close.
func (s *Session) Document() (dom.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.doc, nil
}

// Close releases the surface. Only the first call has an effect; later calls
// return the first call's result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.doc = nil
		s.mu.Unlock()

		s.closeErr = s.surface.Close()
		if s.closeErr != nil {
			s.logger.Debug("surface close failed", "url", s.url, "error", s.closeErr)
		}
	})
	return s.closeErr
}

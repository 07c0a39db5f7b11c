// Package chrome renders pages in headless Chrome through the DevTools protocol.
//
// Each surface owns its own browser process, so surfaces never share
// cookies, cache or storage. After navigation the whole element tree is
// serialized in one round trip into a dom.Snapshot with computed styles and
// bounding boxes, and the surface is inspected offline from then on.
package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/contrastscan/internal/dom"
	"github.com/nao1215/contrastscan/internal/render"
)

// Engine creates headless Chrome surfaces.
type Engine struct {
	execPath        string
	proxy           string
	userAgent       string
	headers         map[string]string
	cookie          string
	ignoreSelectors []string
	textTags        []string
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExecPath sets the Chrome binary. By default chromedp searches the
// usual install locations.
func WithExecPath(path string) Option {
	return func(e *Engine) {
		e.execPath = path
	}
}

// WithProxy routes browser traffic through a proxy such as
// "socks5://127.0.0.1:9050".
func WithProxy(proxy string) Option {
	return func(e *Engine) {
		e.proxy = proxy
	}
}

// WithUserAgent overrides the browser User-Agent.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		e.userAgent = ua
	}
}

// WithHeaders adds HTTP headers to every request the page makes.
func WithHeaders(headers map[string]string) Option {
	return func(e *Engine) {
		e.headers = headers
	}
}

// WithCookie sends a raw cookie string with every request.
func WithCookie(cookie string) Option {
	return func(e *Engine) {
		e.cookie = cookie
	}
}

// WithIgnoreSelectors marks elements inside any matching subtree as ignored.
func WithIgnoreSelectors(selectors []string) Option {
	return func(e *Engine) {
		e.ignoreSelectors = selectors
	}
}

// WithMarkupTags limits serialized markup to the given tags. Other elements
// are still serialized with their styles but without outer HTML, which keeps
// the snapshot small on large pages.
func WithMarkupTags(tags []string) Option {
	return func(e *Engine) {
		e.textTags = tags
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates a Chrome engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements render.Engine.
func (e *Engine) Name() string {
	return "chrome"
}

// NewSurface starts a private headless browser sized to vp.
func (e *Engine) NewSurface(ctx context.Context, vp render.Viewport) (render.Surface, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.WindowSize(vp.Width, vp.Height),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}
	if e.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(e.proxy))
	}
	if e.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.userAgent))
	}

	// The browser must outlive the navigation context but still stop when
	// the scan is cancelled.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			e.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	stop := context.AfterFunc(ctx, func() {
		tabCancel()
		allocCancel()
	})

	// Run with no actions starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		stop()
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &surface{
		engine:      e,
		viewport:    vp,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		stop:        stop,
	}, nil
}

type surface struct {
	engine      *Engine
	viewport    render.Viewport
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	stop        func() bool
}

// run executes actions on the tab, bounded by ctx.
func (s *surface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *surface) Navigate(ctx context.Context, url string) error {
	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(s.viewport.Width), int64(s.viewport.Height)),
	}
	if headers := s.engine.requestHeaders(); len(headers) > 0 {
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions, chromedp.Navigate(url))

	if err := s.run(ctx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", render.ErrLoad, ctxErr)
		}
		return fmt.Errorf("%w: %w", render.ErrLoad, err)
	}
	return nil
}

func (s *surface) Document(ctx context.Context) (dom.Document, error) {
	script, err := s.engine.snapshotScript()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}

	var raw string
	if err := s.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}
	snapshot, err := dom.DecodeSnapshot([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}
	doc, err := dom.NewDocument(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}
	return doc, nil
}

// Close closes the tab and then terminates the browser process.
func (s *surface) Close() error {
	s.stop()
	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *Engine) requestHeaders() network.Headers {
	headers := network.Headers{}
	for k, v := range e.headers {
		headers[k] = v
	}
	if e.cookie != "" {
		headers["Cookie"] = e.cookie
	}
	return headers
}

// snapshotScript returns the JavaScript that serializes the page.
func (e *Engine) snapshotScript() (string, error) {
	ignore, err := json.Marshal(nonNil(e.ignoreSelectors))
	if err != nil {
		return "", err
	}
	tags, err := json.Marshal(nonNil(e.textTags))
	if err != nil {
		return "", err
	}
	props, err := json.Marshal(styleProperties)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(snapshotJS, ignore, tags, props, maxMarkupLength), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// styleProperties are the computed properties copied into the snapshot.
var styleProperties = []string{
	dom.PropDisplay,
	dom.PropVisibility,
	dom.PropOpacity,
	dom.PropColor,
	dom.PropBackgroundColor,
	dom.PropFontSize,
	dom.PropFontWeight,
}

// maxMarkupLength caps the outer HTML kept per element.
const maxMarkupLength = 2000

// snapshotJS walks every element in document order. querySelectorAll('*')
// yields parents before children, so a parent's index is always known when
// its children are visited.
const snapshotJS = `(() => {
  const ignore = %s;
  const markupTags = new Set(%s);
  const props = %s;
  const maxMarkup = %d;
  const all = Array.from(document.querySelectorAll('*'));
  const index = new Map();
  const nodes = [];
  for (const el of all) {
    const tag = el.tagName.toLowerCase();
    const parentIndex = el.parentElement && index.has(el.parentElement) ? index.get(el.parentElement) : -1;
    const node = { tag: tag, markup: '', text: '', parent: parentIndex, x: 0, y: 0 };
    try {
      if (markupTags.size === 0 || markupTags.has(tag)) {
        node.markup = el.outerHTML.slice(0, maxMarkup);
      }
      if (tag === 'input') {
        node.inputType = (el.getAttribute('type') || 'text').toLowerCase();
        node.text = el.value || el.placeholder || '';
      } else {
        node.text = el.textContent || '';
      }
      node.ignored = ignore.some((sel) => { try { return el.closest(sel) !== null; } catch (e) { return false; } });
      const cs = window.getComputedStyle(el);
      node.style = {};
      for (const p of props) { node.style[p] = cs.getPropertyValue(p); }
      const rect = el.getBoundingClientRect();
      node.x = rect.left + window.scrollX;
      node.y = rect.top + window.scrollY;
    } catch (e) {
      node.error = String(e);
    }
    index.set(el, nodes.length);
    nodes.push(node);
  }
  return JSON.stringify({ url: document.location.href, title: document.title, nodes: nodes });
})()`

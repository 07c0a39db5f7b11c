package static

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/nao1215/contrastscan/internal/dom"
	"github.com/nao1215/contrastscan/internal/render"
)

// Engine defaults.
const (
	DefaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) contrastscan"
	DefaultMaxBodySize    = 10 * 1024 * 1024
	DefaultMaxStylesheets = 20
	DefaultRequestTimeout = 30 * time.Second

	// maxMarkupLength caps the outer HTML kept per element.
	maxMarkupLength = 2000
)

// Engine renders pages from their HTML and CSS.
type Engine struct {
	client          *http.Client
	userAgent       string
	maxBodySize     int64
	maxStylesheets  int
	ignoreSelectors []string
	ignore          cascadia.SelectorGroup
	markupTags      []string
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the client used for pages and stylesheets.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how much of each response is read.
func WithMaxBodySize(size int64) Option {
	return func(e *Engine) {
		if size > 0 {
			e.maxBodySize = size
		}
	}
}

// WithMaxStylesheets limits how many linked stylesheets are fetched per page.
func WithMaxStylesheets(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxStylesheets = n
		}
	}
}

// WithIgnoreSelectors marks elements inside any matching subtree as ignored.
func WithIgnoreSelectors(selectors []string) Option {
	return func(e *Engine) {
		e.ignoreSelectors = selectors
	}
}

// WithMarkupTags limits serialized markup to the given tags.
func WithMarkupTags(tags []string) Option {
	return func(e *Engine) {
		e.markupTags = tags
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

// New creates a static engine. It fails if an ignore selector is invalid.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		userAgent:      DefaultUserAgent,
		maxBodySize:    DefaultMaxBodySize,
		maxStylesheets: DefaultMaxStylesheets,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		client, err := NewHTTPClient(ClientConfig{Timeout: DefaultRequestTimeout})
		if err != nil {
			return nil, err
		}
		e.client = client
	}
	for _, s := range e.ignoreSelectors {
		group, err := cascadia.ParseGroup(s)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore selector %q: %w", s, err)
		}
		e.ignore = append(e.ignore, group...)
	}
	return e, nil
}

// Name implements render.Engine.
func (e *Engine) Name() string {
	return "static"
}

// NewSurface implements render.Engine. Surfaces hold no connections of
// their own, so allocation cannot fail.
func (e *Engine) NewSurface(_ context.Context, vp render.Viewport) (render.Surface, error) {
	return &surface{engine: e, viewport: vp}, nil
}

type surface struct {
	engine   *Engine
	viewport render.Viewport

	resp    *response
	root    *html.Node
	cascade *cascade
}

// Navigate fetches the page and its linked stylesheets.
func (s *surface) Navigate(ctx context.Context, pageURL string) error {
	resp, err := s.engine.fetch(ctx, pageURL, acceptHTML)
	if err != nil {
		return fmt.Errorf("%w: %w", render.ErrLoad, err)
	}
	if resp.status >= http.StatusBadRequest {
		s.engine.logger.Warn("page returned an error status", "url", resp.url, "status", resp.status)
	}
	s.resp = resp

	if !isHTML(resp.contentType, resp.body) {
		return nil
	}

	root, err := html.Parse(bytes.NewReader(resp.body))
	if err != nil {
		return fmt.Errorf("%w: failed to parse HTML: %w", render.ErrLoad, err)
	}
	s.root = root
	s.cascade = newCascade(s.viewport, s.engine.logger)
	return s.loadStylesheets(ctx, root, resp.url)
}

// loadStylesheets adds <style> blocks and linked stylesheets in document order.
func (s *surface) loadStylesheets(ctx context.Context, root *html.Node, baseURL string) error {
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", render.ErrLoad, err)
	}
	linked := 0

	for n := range root.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.Data {
		case "base":
			if href := attr(n, "href"); href != "" {
				if u, err := base.Parse(href); err == nil {
					base = u
				}
			}
		case "style":
			if !isCSSType(attr(n, "type")) || !matchMedia(attr(n, "media"), s.viewport) {
				continue
			}
			s.cascade.addStylesheet(textContent(n), "inline <style>")
		case "link":
			if !hasToken(attr(n, "rel"), "stylesheet") || hasToken(attr(n, "rel"), "alternate") {
				continue
			}
			if !matchMedia(attr(n, "media"), s.viewport) {
				continue
			}
			href := attr(n, "href")
			if href == "" {
				continue
			}
			if linked >= s.engine.maxStylesheets {
				s.engine.logger.Debug("stylesheet limit reached", "href", href)
				continue
			}
			linked++

			sheetURL, err := base.Parse(href)
			if err != nil {
				s.engine.logger.Warn("skipping stylesheet with invalid URL", "href", href, "error", err)
				continue
			}
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", render.ErrLoad, err)
			}
			resp, err := s.engine.fetch(ctx, sheetURL.String(), acceptCSS)
			if err != nil {
				s.engine.logger.Warn("failed to fetch stylesheet", "url", sheetURL.String(), "error", err)
				continue
			}
			if resp.status >= http.StatusBadRequest {
				s.engine.logger.Warn("stylesheet returned an error status", "url", resp.url, "status", resp.status)
				continue
			}
			s.cascade.addStylesheet(string(resp.body), resp.url)
		}
	}
	return nil
}

// Document builds a snapshot of the parsed page.
func (s *surface) Document(ctx context.Context) (dom.Document, error) {
	if s.resp == nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, ErrNotNavigated)
	}
	if s.root == nil {
		return nil, fmt.Errorf("%w: %w: %s", render.ErrDocumentAccess, ErrNotHTML, s.resp.contentType)
	}

	b := &snapshotBuilder{
		engine:   s.engine,
		cascade:  s.cascade,
		snapshot: &dom.Snapshot{URL: s.resp.url},
	}
	if err := b.walk(ctx, s.root, -1, rootStyle(), false); err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}

	doc, err := dom.NewDocument(b.snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}
	return doc, nil
}

// Close implements render.Surface. Parsed state is dropped.
func (s *surface) Close() error {
	s.resp = nil
	s.root = nil
	s.cascade = nil
	return nil
}

type snapshotBuilder struct {
	engine   *Engine
	cascade  *cascade
	snapshot *dom.Snapshot
}

// walk appends n's element descendants in document order. Position Y is the
// element's ordinal, which preserves reading order without a layout.
func (b *snapshotBuilder) walk(ctx context.Context, n *html.Node, parent int, parentStyle *computedStyle, parentIgnored bool) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		tag := strings.ToLower(c.Data)
		style := computeStyle(b.cascade.declared(c), parentStyle)
		ignored := parentIgnored || b.ignored(c)

		if tag == "title" && b.snapshot.Title == "" {
			b.snapshot.Title = strings.TrimSpace(textContent(c))
		}

		index := len(b.snapshot.Nodes)
		node := dom.Node{
			Tag:     tag,
			Text:    textContent(c),
			Style:   style.properties(),
			Y:       float64(index),
			Parent:  parent,
			Ignored: ignored,
		}
		if tag == "input" {
			node.InputType = strings.ToLower(attr(c, "type"))
			node.Text = attr(c, "value")
			if node.Text == "" {
				node.Text = attr(c, "placeholder")
			}
		}
		if len(b.engine.markupTags) == 0 || slices.Contains(b.engine.markupTags, tag) {
			node.Markup = outerHTML(c)
		}
		b.snapshot.Nodes = append(b.snapshot.Nodes, node)

		if err := b.walk(ctx, c, index, style, ignored); err != nil {
			return err
		}
	}
	return nil
}

func (b *snapshotBuilder) ignored(n *html.Node) bool {
	for _, sel := range b.engine.ignore {
		if sel.Match(n) {
			return true
		}
	}
	return false
}

// textContent concatenates descendant text, skipping script and style bodies.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode:
				if c.Data == "script" || c.Data == "template" {
					continue
				}
				collect(c)
			}
		}
	}
	collect(n)
	return sb.String()
}

func outerHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "<" + n.Data + ">"
	}
	markup := buf.String()
	if len(markup) > maxMarkupLength {
		markup = strings.ToValidUTF8(markup[:maxMarkupLength], "")
	}
	return markup
}

func isCSSType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	return t == "" || t == "text/css"
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(strings.ToLower(list)) {
		if f == token {
			return true
		}
	}
	return false
}

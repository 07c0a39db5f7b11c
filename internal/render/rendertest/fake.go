// Package rendertest provides an in-memory rendering engine for tests.
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/contrastscan/internal/dom"
	"github.com/nao1215/contrastscan/internal/render"
)

// ErrUnknownPage is returned by Navigate for URLs without a registered page.
var ErrUnknownPage = errors.New("no such page")

// Engine serves canned snapshots keyed by URL.
type Engine struct {
	mu sync.Mutex

	pages        map[string]*dom.Snapshot
	navigateErr  map[string]error
	documentErr  map[string]error
	navigateWait time.Duration
	surfaceErr   error
	closeErr     error

	surfaces  int
	closed    int
	viewports []render.Viewport
}

// NewEngine returns an empty fake engine.
func NewEngine() *Engine {
	return &Engine{
		pages:       make(map[string]*dom.Snapshot),
		navigateErr: make(map[string]error),
		documentErr: make(map[string]error),
	}
}

// AddPage registers the snapshot served for url.
func (e *Engine) AddPage(url string, s *dom.Snapshot) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.URL == "" {
		s.URL = url
	}
	e.pages[url] = s
	return e
}

// FailNavigation makes navigation to url fail with err.
func (e *Engine) FailNavigation(url string, err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.navigateErr[url] = err
	return e
}

// FailDocument makes document access fail with err after navigating to url.
func (e *Engine) FailDocument(url string, err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.documentErr[url] = err
	return e
}

// FailSurface makes surface allocation fail.
func (e *Engine) FailSurface(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surfaceErr = err
	return e
}

// FailClose makes every surface Close report err.
func (e *Engine) FailClose(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeErr = err
	return e
}

// SlowNavigation makes every navigation block for d or until its context ends.
func (e *Engine) SlowNavigation(d time.Duration) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.navigateWait = d
	return e
}

// Name implements render.Engine.
func (e *Engine) Name() string { return "fake" }

// NewSurface implements render.Engine.
func (e *Engine) NewSurface(_ context.Context, vp render.Viewport) (render.Surface, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surfaceErr != nil {
		return nil, e.surfaceErr
	}
	e.surfaces++
	e.viewports = append(e.viewports, vp)
	return &surface{engine: e}, nil
}

// Surfaces returns how many surfaces were allocated.
func (e *Engine) Surfaces() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surfaces
}

// Closed returns how many Close calls surfaces received in total.
func (e *Engine) Closed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Viewports returns the viewport of every allocated surface.
func (e *Engine) Viewports() []render.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]render.Viewport(nil), e.viewports...)
}

type surface struct {
	engine *Engine
	url    string
}

func (s *surface) Navigate(ctx context.Context, url string) error {
	s.engine.mu.Lock()
	wait := s.engine.navigateWait
	navErr := s.engine.navigateErr[url]
	_, known := s.engine.pages[url]
	s.engine.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", render.ErrLoad, ctx.Err())
		case <-timer.C:
		}
	}
	if navErr != nil {
		return fmt.Errorf("%w: %w", render.ErrLoad, navErr)
	}
	if !known {
		return fmt.Errorf("%w: %w: %s", render.ErrLoad, ErrUnknownPage, url)
	}
	s.url = url
	return nil
}

func (s *surface) Document(_ context.Context) (dom.Document, error) {
	s.engine.mu.Lock()
	docErr := s.engine.documentErr[s.url]
	snapshot := s.engine.pages[s.url]
	s.engine.mu.Unlock()

	if docErr != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, docErr)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nothing loaded", render.ErrDocumentAccess)
	}
	doc, err := dom.NewDocument(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrDocumentAccess, err)
	}
	return doc, nil
}

func (s *surface) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.closed++
	return s.engine.closeErr
}

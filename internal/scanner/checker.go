package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/contrast"
	"github.com/nao1215/contrastscan/internal/dom"
	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/render"
)

// TextTags lists the tags whose text is checked. Inputs only count when
// they render editable text.
var TextTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "a", "span", "li", "td", "th", "label", "input", "button",
}

// Checker scans pages for color-contrast problems.
// A Checker holds no per-scan state and may be used concurrently.
type Checker struct {
	loader  *render.Loader
	logger  *slog.Logger
	flatten bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for per-element diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithFlattenTranslucent composites backgrounds made translucent by ancestor
// opacity over white, and translucent text over the resulting background,
// before measuring. An element's own background alpha is not composited:
// ResolveBackground already returns that background opaque.
// Without it the ratio is computed from the RGB channels alone.
func WithFlattenTranslucent(flatten bool) Option {
	return func(c *Checker) {
		c.flatten = flatten
	}
}

// New creates a Checker that opens pages with loader.
func New(loader *render.Loader, opts ...Option) *Checker {
	c := &Checker{loader: loader}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CheckColorContrast loads pageURL and returns every text element whose
// contrast does not meet WCAG AAA, in document order. The result is empty,
// never nil, when the page has no such element. On failure the error is a
// *CheckError and no findings are returned.
func (c *Checker) CheckColorContrast(ctx context.Context, pageURL string) ([]model.ContrastFinding, error) {
	report, err := c.Scan(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return report.Findings, nil
}

// Scan is like CheckColorContrast but returns the full report. The report is
// never nil; when the error is non-nil it is in the failed state, holds no
// findings, and carries the user-facing message in Error.
func (c *Checker) Scan(ctx context.Context, pageURL string) (*model.ScanReport, error) {
	report := model.NewScanReport(pageURL)
	report.Renderer = c.loader.Engine().Name()
	report.Viewport = c.loader.Viewport().String()
	started := time.Now()
	defer func() {
		report.Duration = time.Since(started)
	}()

	machine, err := newScanMachine(pageURL)
	if err != nil {
		return c.fail(report, nil, newCheckError(KindScan, pageURL, err))
	}
	if err := machine.send(eventLoad); err != nil {
		return c.fail(report, machine, newCheckError(KindScan, pageURL, err))
	}

	// The session is released before the machine reaches done.
	scanned := false
	err = c.loader.WithSession(ctx, pageURL, func(session *render.Session) error {
		doc, err := session.Document()
		if err != nil {
			return newCheckError(KindDocumentAccess, pageURL, err)
		}
		if err := machine.send(eventLoaded); err != nil {
			return newCheckError(KindScan, pageURL, err)
		}
		report.FinalURL = doc.URL()
		report.Title = doc.Title()

		if err := c.scanDocument(ctx, doc, report); err != nil {
			return newCheckError(KindScan, pageURL, err)
		}
		scanned = true
		return nil
	})

	var checkErr *CheckError
	switch {
	case errors.As(err, &checkErr):
		return c.fail(report, machine, checkErr)
	case err != nil && scanned:
		c.logger.Debug("failed to release page session", "url", pageURL, "error", err)
	case err != nil:
		kind := KindLoad
		if errors.Is(err, render.ErrDocumentAccess) {
			kind = KindDocumentAccess
		}
		return c.fail(report, machine, newCheckError(kind, pageURL, err))
	}

	if err := machine.send(eventFinish); err != nil {
		return c.fail(report, machine, newCheckError(KindScan, pageURL, err))
	}
	report.State = machine.current()

	c.logger.Debug("scan completed",
		"url", pageURL,
		"checked", report.ElementsChecked,
		"skipped", report.ElementsSkipped,
		"errors", report.ElementErrors,
		"findings", len(report.Findings),
	)
	return report, nil
}

func (c *Checker) fail(report *model.ScanReport, machine *scanMachine, err *CheckError) (*model.ScanReport, error) {
	report.State = StateFailed
	if machine != nil {
		if serr := machine.send(eventFail); serr == nil {
			report.State = machine.current()
		}
	}
	report.Findings = make([]model.ContrastFinding, 0)
	report.Error = err.Error()
	c.logger.Debug("scan failed", "url", err.URL, "kind", err.Kind.String(), "cause", err.Err)
	return report, err
}

// scanDocument checks every candidate element of doc. Only cancellation
// aborts the walk.
func (c *Checker) scanDocument(ctx context.Context, doc dom.Document, report *model.ScanReport) error {
	for _, el := range doc.Elements(TextTags...) {
		if err := ctx.Err(); err != nil {
			return err
		}

		finding, skipped, err := c.checkElement(el)
		switch {
		case err != nil:
			report.ElementErrors++
			c.logger.Debug("skipping element", "tag", el.Tag(), "error", err)
		case skipped:
			report.ElementsSkipped++
		default:
			report.ElementsChecked++
			if finding != nil {
				report.Findings = append(report.Findings, *finding)
			}
		}
	}
	return nil
}

// checkElement measures one element. It returns a finding when the element
// does not reach AAA, and reports elements that are empty, hidden or
// excluded as skipped.
func (c *Checker) checkElement(el dom.Element) (*model.ContrastFinding, bool, error) {
	if el.Ignored() {
		return nil, true, nil
	}
	text := model.CleanText(el.Text())
	if text == "" {
		return nil, true, nil
	}

	hidden, err := isHidden(el)
	if err != nil {
		return nil, false, err
	}
	if hidden {
		return nil, true, nil
	}
	hidden, err = hasHiddenAncestor(el)
	if err != nil {
		return nil, false, err
	}
	if hidden {
		return nil, true, nil
	}

	var colorErr error
	fgValue, err := el.Style(dom.PropColor)
	if err != nil {
		return nil, false, err
	}
	fg, err := color.Parse(fgValue)
	if err != nil {
		colorErr = err
	}

	bg, err := contrast.ResolveBackground(el)
	if err != nil {
		if !errors.Is(err, color.ErrInvalidFormat) {
			return nil, false, err
		}
		colorErr = errors.Join(colorErr, err)
	}

	sizeValue, err := el.Style(dom.PropFontSize)
	if err != nil {
		return nil, false, err
	}
	weightValue, err := el.Style(dom.PropFontWeight)
	if err != nil {
		return nil, false, err
	}
	fontSize := contrast.ParseFontSize(sizeValue, contrast.DefaultFontSizePx)
	fontWeight := contrast.ParseFontWeight(weightValue)

	measuredFg, measuredBg := fg, bg
	if c.flatten && colorErr == nil {
		measuredBg = bg.Over(contrast.CanvasColor)
		measuredFg = fg.Over(measuredBg)
	}

	result := contrast.Evaluate(contrast.Input{
		Foreground: measuredFg,
		Background: measuredBg,
		ColorErr:   colorErr,
		FontSizePx: fontSize,
		FontWeight: fontWeight,
	})
	if result.PassesAAA {
		return nil, false, nil
	}

	pos, err := el.Position()
	if err != nil {
		return nil, false, err
	}

	finding := &model.ContrastFinding{
		Element:     model.CleanMarkup(el.Markup()),
		Tag:         el.Tag(),
		Text:        text,
		Foreground:  fg,
		Background:  bg,
		Ratio:       result.Ratio,
		IsLargeText: result.IsLargeText,
		PassesAA:    result.PassesAA,
		PassesAAA:   result.PassesAAA,
		Position:    model.Position{X: pos.X, Y: pos.Y},
		FontSizePx:  fontSize,
		FontWeight:  fontWeight,
		Severity:    model.SeverityFor(result.PassesAA),
	}
	if colorErr != nil {
		finding.ColorError = colorErr.Error()
	}
	return finding, false, nil
}

// isHidden reports whether el itself is not rendered or fully transparent.
func isHidden(el dom.Element) (bool, error) {
	display, err := el.Style(dom.PropDisplay)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(display, "none") {
		return true, nil
	}

	visibility, err := el.Style(dom.PropVisibility)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(visibility, "hidden") || strings.EqualFold(visibility, "collapse") {
		return true, nil
	}

	opacity, err := el.Style(dom.PropOpacity)
	if err != nil {
		return false, err
	}
	return contrast.ParseOpacity(opacity) == 0, nil
}

// hasHiddenAncestor reports whether an ancestor of el has display:none.
func hasHiddenAncestor(el dom.Element) (bool, error) {
	for p := el.Parent(); p != nil; p = p.Parent() {
		display, err := p.Style(dom.PropDisplay)
		if err != nil {
			return false, fmt.Errorf("failed to read display of ancestor <%s>: %w", p.Tag(), err)
		}
		if strings.EqualFold(display, "none") {
			return true, nil
		}
	}
	return false, nil
}

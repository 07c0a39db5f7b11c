package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contrastscan/internal/dom"
	"github.com/nao1215/contrastscan/internal/model"
	"github.com/nao1215/contrastscan/internal/render"
	"github.com/nao1215/contrastscan/internal/render/rendertest"
	"github.com/nao1215/contrastscan/internal/render/static"
)

const testURL = "https://example.com/"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// textNode returns a node with the given foreground and 16px normal text.
func textNode(tag, text, fg string, parent int) dom.Node {
	return dom.Node{
		Tag:    tag,
		Markup: "<" + tag + ">" + text + "</" + tag + ">",
		Text:   text,
		Parent: parent,
		Style: map[string]string{
			dom.PropColor:      fg,
			dom.PropFontSize:   "16px",
			dom.PropFontWeight: "400",
			dom.PropDisplay:    "block",
			dom.PropVisibility: "visible",
			dom.PropOpacity:    "1",
		},
	}
}

func withStyle(n dom.Node, property, value string) dom.Node {
	style := make(map[string]string, len(n.Style)+1)
	for k, v := range n.Style {
		style[k] = v
	}
	style[property] = value
	n.Style = style
	return n
}

func body(bg string) dom.Node {
	return dom.Node{
		Tag:    "body",
		Parent: -1,
		Style:  map[string]string{dom.PropBackgroundColor: bg, dom.PropDisplay: "block"},
	}
}

func newChecker(engine *rendertest.Engine, opts ...Option) *Checker {
	loader := render.NewLoader(engine, render.WithSettleDelay(0))
	return New(loader, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func scanPage(t *testing.T, nodes []dom.Node, opts ...Option) (*model.ScanReport, *rendertest.Engine) {
	t.Helper()

	engine := rendertest.NewEngine().AddPage(testURL, &dom.Snapshot{Title: "Test", Nodes: nodes})
	report, err := newChecker(engine, opts...).Scan(context.Background(), testURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return report, engine
}

func TestCheckColorContrast(t *testing.T) {
	t.Parallel()

	t.Run("gray text fails only AAA", func(t *testing.T) {
		t.Parallel()

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("p", "Hello", "rgb(118, 118, 118)", 0),
		})
		if len(report.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(report.Findings))
		}
		f := report.Findings[0]
		if f.DisplayRatio() != 4.54 {
			t.Errorf("expected ratio 4.54, got %v", f.Ratio)
		}
		if !f.PassesAA || f.PassesAAA {
			t.Errorf("expected AA pass and AAA fail, got AA=%v AAA=%v", f.PassesAA, f.PassesAAA)
		}
		if f.Severity != model.SeverityMedium {
			t.Errorf("expected MEDIUM, got %v", f.Severity)
		}
		if f.Tag != "p" || f.Text != "Hello" || f.Element != "<p>Hello</p>" {
			t.Errorf("unexpected finding %+v", f)
		}
	})

	t.Run("black on white is not reported", func(t *testing.T) {
		t.Parallel()

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("h1", "Title", "rgb(0, 0, 0)", 0),
		})
		if len(report.Findings) != 0 {
			t.Errorf("expected no findings, got %+v", report.Findings)
		}
		if report.ElementsChecked != 1 {
			t.Errorf("expected 1 checked element, got %d", report.ElementsChecked)
		}
	})

	t.Run("light gray fails AA", func(t *testing.T) {
		t.Parallel()

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("a", "Link", "rgb(153, 153, 153)", 0),
		})
		if len(report.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(report.Findings))
		}
		f := report.Findings[0]
		if f.PassesAA || f.Severity != model.SeverityHigh {
			t.Errorf("expected AA failure with HIGH severity, got %+v", f)
		}
	})

	t.Run("large text uses relaxed thresholds", func(t *testing.T) {
		t.Parallel()

		large := withStyle(textNode("h2", "Heading", "rgb(118, 118, 118)", 0), dom.PropFontSize, "24px")
		bold := withStyle(withStyle(textNode("span", "Bold", "rgb(118, 118, 118)", 0), dom.PropFontSize, "14px"), dom.PropFontWeight, "700")
		report, _ := scanPage(t, []dom.Node{body("rgb(255, 255, 255)"), large, bold})
		if len(report.Findings) != 0 {
			t.Errorf("expected large text to pass AAA, got %+v", report.Findings)
		}
	})

	t.Run("background comes from ancestor", func(t *testing.T) {
		t.Parallel()

		div := dom.Node{Tag: "div", Parent: 0, Style: map[string]string{dom.PropBackgroundColor: "rgb(0, 0, 0)"}}
		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			div,
			textNode("span", "Dark", "rgb(51, 51, 51)", 1),
		})
		if len(report.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(report.Findings))
		}
		if got := report.Findings[0].Background.Hex(); got != "#000000" {
			t.Errorf("expected black background, got %s", got)
		}
	})

	t.Run("unparsable color is flagged with minimum ratio", func(t *testing.T) {
		t.Parallel()

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("label", "Name", "color(display-p3 1 0 0)", 0),
		})
		if len(report.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(report.Findings))
		}
		f := report.Findings[0]
		if f.Ratio != 1 || f.PassesAA || f.ColorError == "" {
			t.Errorf("expected fail-safe finding, got %+v", f)
		}
	})

	t.Run("skips empty hidden and ignored elements", func(t *testing.T) {
		t.Parallel()

		gray := "rgb(200, 200, 200)"
		hiddenParent := dom.Node{Tag: "div", Parent: 0, Style: map[string]string{dom.PropDisplay: "none"}}
		ignored := textNode("p", "Ignored", gray, 0)
		ignored.Ignored = true

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("p", "   \n ", gray, 0),
			withStyle(textNode("p", "None", gray, 0), dom.PropDisplay, "none"),
			withStyle(textNode("p", "Invisible", gray, 0), dom.PropVisibility, "hidden"),
			withStyle(textNode("p", "Transparent", gray, 0), dom.PropOpacity, "0"),
			hiddenParent,
			textNode("span", "Inside hidden", gray, 5),
			ignored,
		})
		if len(report.Findings) != 0 {
			t.Errorf("expected no findings, got %+v", report.Findings)
		}
		if report.ElementsSkipped != 6 {
			t.Errorf("expected 6 skipped elements, got %d", report.ElementsSkipped)
		}
	})

	t.Run("element errors are counted and skipped", func(t *testing.T) {
		t.Parallel()

		broken := textNode("p", "Broken", "rgb(200, 200, 200)", 0)
		broken.Error = "element detached"
		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			broken,
			textNode("p", "Fine", "rgb(200, 200, 200)", 0),
		})
		if report.ElementErrors != 1 {
			t.Errorf("expected 1 element error, got %d", report.ElementErrors)
		}
		if len(report.Findings) != 1 || report.Findings[0].Text != "Fine" {
			t.Errorf("expected the remaining element to be reported, got %+v", report.Findings)
		}
	})

	t.Run("findings keep document order", func(t *testing.T) {
		t.Parallel()

		report, _ := scanPage(t, []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("h1", "First", "rgb(200, 200, 200)", 0),
			textNode("p", "Second", "rgb(0, 0, 0)", 0),
			textNode("li", "Third", "rgb(200, 200, 200)", 0),
			textNode("td", "Fourth", "rgb(150, 150, 150)", 0),
		})
		var texts []string
		for _, f := range report.Findings {
			texts = append(texts, f.Text)
		}
		if strings.Join(texts, ",") != "First,Third,Fourth" {
			t.Errorf("unexpected order %v", texts)
		}
	})

	t.Run("empty page yields empty non-nil findings", func(t *testing.T) {
		t.Parallel()

		engine := rendertest.NewEngine().AddPage(testURL, &dom.Snapshot{Nodes: []dom.Node{body("rgb(255, 255, 255)")}})
		findings, err := newChecker(engine).CheckColorContrast(context.Background(), testURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if findings == nil || len(findings) != 0 {
			t.Errorf("expected empty non-nil findings, got %#v", findings)
		}
	})
}

func TestFlattenTranslucent(t *testing.T) {
	t.Parallel()

	overlay := dom.Node{
		Tag:    "div",
		Parent: 0,
		Style:  map[string]string{dom.PropBackgroundColor: "rgb(0, 0, 0)", dom.PropOpacity: "0.5"},
	}
	nodes := []dom.Node{
		body("rgb(255, 255, 255)"),
		overlay,
		textNode("p", "White text", "rgb(255, 255, 255)", 1),
	}

	report, _ := scanPage(t, nodes)
	if len(report.Findings) != 0 {
		t.Errorf("expected no findings without flattening, got %+v", report.Findings)
	}

	report, _ = scanPage(t, nodes, WithFlattenTranslucent(true))
	if len(report.Findings) != 1 {
		t.Fatalf("expected 1 finding with flattening, got %d", len(report.Findings))
	}
	if report.Findings[0].PassesAA {
		t.Errorf("expected AA failure over 50%% gray, got ratio %v", report.Findings[0].Ratio)
	}

	// An element's own translucent background is measured opaque.
	ownAlpha := []dom.Node{
		body("rgb(255, 255, 255)"),
		withStyle(textNode("p", "Own alpha", "rgb(255, 255, 255)", 0), dom.PropBackgroundColor, "rgba(0, 0, 0, 0.5)"),
	}
	report, _ = scanPage(t, ownAlpha, WithFlattenTranslucent(true))
	if len(report.Findings) != 0 {
		t.Errorf("expected own background alpha to be ignored, got %+v", report.Findings)
	}
}

func TestScanReport(t *testing.T) {
	t.Parallel()

	report, engine := scanPage(t, []dom.Node{
		body("rgb(255, 255, 255)"),
		textNode("p", "Hello", "rgb(118, 118, 118)", 0),
	})

	if report.State != StateDone {
		t.Errorf("expected state %q, got %q", StateDone, report.State)
	}
	if report.Renderer != "fake" || report.Viewport != "1024x768" {
		t.Errorf("unexpected renderer metadata %q %q", report.Renderer, report.Viewport)
	}
	if report.Title != "Test" || report.FinalURL != testURL {
		t.Errorf("unexpected document metadata %q %q", report.Title, report.FinalURL)
	}
	if report.Error != "" {
		t.Errorf("unexpected error message %q", report.Error)
	}
	if engine.Surfaces() != 1 || engine.Closed() != 1 {
		t.Errorf("expected one surface closed once, got %d surfaces and %d closes", engine.Surfaces(), engine.Closed())
	}
}

func TestScanFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		engine   func() *rendertest.Engine
		kind     Kind
		sentinel error
		message  string
	}{
		{
			name:     "unreachable page",
			url:      testURL,
			engine:   func() *rendertest.Engine { return rendertest.NewEngine().FailNavigation(testURL, errors.New("connection refused")) },
			kind:     KindLoad,
			sentinel: ErrLoadFailure,
			message:  "Failed to analyze color contrast. Please check the URL and try again.",
		},
		{
			name:     "invalid URL",
			url:      "not a url",
			engine:   rendertest.NewEngine,
			kind:     KindLoad,
			sentinel: ErrLoadFailure,
			message:  "Failed to analyze color contrast. Please check the URL and try again.",
		},
		{
			name: "document access denied",
			url:  testURL,
			engine: func() *rendertest.Engine {
				return rendertest.NewEngine().
					AddPage(testURL, &dom.Snapshot{}).
					FailDocument(testURL, errors.New("cross-origin frame"))
			},
			kind:     KindDocumentAccess,
			sentinel: ErrDocumentAccess,
			message:  "Could not access page content.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := tt.engine()
			report, err := newChecker(engine).Scan(context.Background(), tt.url)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var checkErr *CheckError
			if !errors.As(err, &checkErr) {
				t.Fatalf("expected *CheckError, got %T", err)
			}
			if checkErr.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, checkErr.Kind)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(err, %v)", tt.sentinel)
			}
			if err.Error() != tt.message {
				t.Errorf("unexpected message %q", err.Error())
			}
			if report.State != StateFailed || report.Error != tt.message {
				t.Errorf("unexpected report state %q error %q", report.State, report.Error)
			}
			if len(report.Findings) != 0 {
				t.Errorf("expected no findings, got %d", len(report.Findings))
			}
			if engine.Closed() != engine.Surfaces() {
				t.Errorf("every surface must be closed: %d surfaces, %d closes", engine.Surfaces(), engine.Closed())
			}
		})
	}

	t.Run("navigation timeout", func(t *testing.T) {
		t.Parallel()

		engine := rendertest.NewEngine().AddPage(testURL, &dom.Snapshot{}).SlowNavigation(time.Second)
		loader := render.NewLoader(engine, render.WithSettleDelay(0), render.WithNavigationTimeout(20*time.Millisecond))
		findings, err := New(loader, WithLogger(quietLogger())).CheckColorContrast(context.Background(), testURL)
		if !errors.Is(err, ErrLoadFailure) {
			t.Errorf("expected ErrLoadFailure, got %v", err)
		}
		if findings != nil {
			t.Errorf("expected no findings, got %v", findings)
		}
		if engine.Closed() != 1 {
			t.Errorf("expected surface closed once, got %d", engine.Closed())
		}
	})
}

type cancellingDocument struct {
	dom.Document
	cancel context.CancelFunc
}

func (d cancellingDocument) Elements(tags ...string) []dom.Element {
	d.cancel()
	return d.Document.Elements(tags...)
}

func TestScanDocumentCancelled(t *testing.T) {
	t.Parallel()

	doc, err := dom.NewDocument(&dom.Snapshot{Nodes: []dom.Node{
		body("rgb(255, 255, 255)"),
		textNode("p", "One", "rgb(200, 200, 200)", 0),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(render.NewLoader(rendertest.NewEngine()), WithLogger(quietLogger()))
	report := model.NewScanReport(testURL)
	err = c.scanDocument(ctx, cancellingDocument{Document: doc, cancel: cancel}, report)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(report.Findings) != 0 {
		t.Errorf("expected no findings after cancellation, got %d", len(report.Findings))
	}
}

func TestCheckColorContrastStaticInlineStyles(t *testing.T) {
	t.Parallel()

	const page = `<!DOCTYPE html>
<html>
<body style="background-color: rgb(255, 255, 255)">
  <h1 style="color: rgb(0, 0, 0)">Black heading</h1>
  <p style="background: #000000; color: #ffffff">Inverted paragraph</p>
  <p style="color: rgb(118, 118, 118); font-size: 24px">Large gray paragraph</p>
  <p style="color: rgb(118, 118, 118)">Gray paragraph</p>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	engine, err := static.New(static.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("static.New failed: %v", err)
	}
	checker := New(render.NewLoader(engine, render.WithSettleDelay(0)), WithLogger(quietLogger()))

	findings, err := checker.CheckColorContrast(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected only the gray paragraph, got %d findings: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Text != "Gray paragraph" {
		t.Errorf("unexpected finding %q", f.Text)
	}
	if f.ColorError != "" {
		t.Errorf("unexpected color error %q", f.ColorError)
	}
	if f.DisplayRatio() != 4.54 || !f.PassesAA || f.Severity != model.SeverityMedium {
		t.Errorf("expected MEDIUM at 4.54:1, got %s at %.2f:1", f.Severity, f.DisplayRatio())
	}
}

func TestScanSurfaceCloseFailure(t *testing.T) {
	t.Parallel()

	engine := rendertest.NewEngine().
		AddPage(testURL, &dom.Snapshot{Nodes: []dom.Node{
			body("rgb(255, 255, 255)"),
			textNode("p", "Hello", "rgb(118, 118, 118)", 0),
		}}).
		FailClose(errors.New("tab already gone"))

	report, err := newChecker(engine).Scan(context.Background(), testURL)
	if err != nil {
		t.Fatalf("a failed release must not fail a finished scan: %v", err)
	}
	if report.State != StateDone || len(report.Findings) != 1 {
		t.Errorf("expected done with 1 finding, got %q with %d", report.State, len(report.Findings))
	}
	if engine.Closed() != 1 {
		t.Errorf("expected surface closed once, got %d", engine.Closed())
	}
}

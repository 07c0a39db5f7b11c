package static

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/nao1215/contrastscan/internal/render"
)

// Cascade origins in increasing precedence.
const (
	originUserAgent = iota
	originAuthor
	originInline
)

// userAgentCSS is the subset of a browser's default stylesheet that affects
// visibility, colors and font metrics.
const userAgentCSS = `
html, body, div, p, ul, ol, li, table, form, header, footer, main, nav, section, article, aside,
h1, h2, h3, h4, h5, h6, blockquote, pre, figure, fieldset, address, dl, dt, dd { display: block; }
head, script, style, title, meta, link, base, template, noscript, datalist, [hidden] { display: none; }
input[type="hidden"] { display: none; }
li { display: list-item; }
table { display: table; }
tr { display: table-row; }
td, th { display: table-cell; }
h1 { font-size: 2em; font-weight: bold; }
h2 { font-size: 1.5em; font-weight: bold; }
h3 { font-size: 1.17em; font-weight: bold; }
h4 { font-size: 1em; font-weight: bold; }
h5 { font-size: 0.83em; font-weight: bold; }
h6 { font-size: 0.67em; font-weight: bold; }
th, b, strong { font-weight: bold; }
small { font-size: smaller; }
a[href] { color: #0000ee; }
button { display: inline-block; color: #000000; background-color: #efefef; }
input, textarea, select { display: inline-block; color: #000000; background-color: #ffffff; }
mark { color: #000000; background-color: #ffff00; }
`

// userAgentRules parses userAgentCSS once.
var userAgentRules = sync.OnceValue(func() []*css.Rule {
	sheet, err := parser.Parse(userAgentCSS)
	if err != nil {
		panic("static: invalid user agent stylesheet: " + err.Error())
	}
	return sheet.Rules
})

// declaration is one candidate value for a property.
type declaration struct {
	value       string
	important   bool
	origin      int
	specificity cascadia.Specificity
	order       int
}

// beats reports whether d takes precedence over o. Among !important
// declarations the user agent origin wins over author and inline ones.
func (d declaration) beats(o declaration) bool {
	if d.important != o.important {
		return d.important
	}
	if d.origin != o.origin {
		if d.important && (d.origin == originUserAgent || o.origin == originUserAgent) {
			return d.origin == originUserAgent
		}
		return d.origin > o.origin
	}
	if d.specificity != o.specificity {
		return o.specificity.Less(d.specificity)
	}
	return d.order > o.order
}

// styleRule is one selector of a qualified rule with its declarations.
type styleRule struct {
	selector     cascadia.Sel
	specificity  cascadia.Specificity
	origin       int
	order        int
	declarations []*css.Declaration
}

// cascade holds every rule that applies to a page, in source order.
type cascade struct {
	viewport render.Viewport
	logger   *slog.Logger
	rules    []styleRule
	order    int
}

func newCascade(vp render.Viewport, logger *slog.Logger) *cascade {
	c := &cascade{viewport: vp, logger: logger}
	c.addRules(userAgentRules(), originUserAgent)
	return c
}

// addStylesheet parses an author stylesheet and appends its rules.
func (c *cascade) addStylesheet(text, source string) {
	sheet, err := parser.Parse(text)
	if err != nil {
		c.logger.Warn("skipping unparsable stylesheet", "source", source, "error", err)
		return
	}
	c.addRules(sheet.Rules, originAuthor)
}

func (c *cascade) addRules(rules []*css.Rule, origin int) {
	for _, r := range rules {
		switch r.Kind {
		case css.QualifiedRule:
			c.addQualified(r, origin)
		case css.AtRule:
			switch atRuleName(r.Name) {
			case "media":
				if matchMedia(r.Prelude, c.viewport) {
					c.addRules(r.Rules, origin)
				}
			case "supports", "layer", "container":
				// Conditions are assumed to hold.
				c.addRules(r.Rules, origin)
			}
		}
	}
}

func (c *cascade) addQualified(r *css.Rule, origin int) {
	for _, text := range r.Selectors {
		group, err := cascadia.ParseGroup(text)
		if err != nil {
			// Dynamic pseudo-classes such as :hover never match a static page.
			continue
		}
		for _, sel := range group {
			if sel.PseudoElement() != "" {
				continue
			}
			c.order++
			c.rules = append(c.rules, styleRule{
				selector:     sel,
				specificity:  sel.Specificity(),
				origin:       origin,
				order:        c.order,
				declarations: r.Declarations,
			})
		}
	}
}

func atRuleName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// declared returns the winning declared value of each tracked property of n.
func (c *cascade) declared(n *html.Node) map[string]declaration {
	result := make(map[string]declaration)
	apply := func(d *css.Declaration, origin int, specificity cascadia.Specificity, order int) {
		value := strings.TrimSpace(d.Value)
		if value == "" {
			// Invalid declarations are ignored.
			return
		}
		for _, p := range expandShorthand(propertyName(d.Property), value) {
			candidate := declaration{
				value:       p.value,
				important:   d.Important,
				origin:      origin,
				specificity: specificity,
				order:       order,
			}
			if current, ok := result[p.name]; !ok || candidate.beats(current) {
				result[p.name] = candidate
			}
		}
	}

	for _, r := range c.rules {
		if !r.selector.Match(n) {
			continue
		}
		for _, d := range r.declarations {
			apply(d, r.origin, r.specificity, r.order)
		}
	}

	if inline := attr(n, "style"); inline != "" {
		decls, err := parseInlineStyle(inline)
		if err != nil {
			c.logger.Debug("skipping unparsable inline style", "style", inline, "error", err)
		} else {
			for i, d := range decls {
				apply(d, originInline, cascadia.Specificity{1, 0, 0}, c.order+i+1)
			}
		}
	}
	return result
}

// parseInlineStyle parses the declarations of a style attribute. The parser
// drops the value of a final declaration that is not terminated, so one
// semicolon is always appended.
func parseInlineStyle(style string) ([]*css.Declaration, error) {
	style = strings.TrimSpace(style)
	if !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return parser.ParseDeclarations(style)
}

// propertyName normalizes a declared property. Custom property names are
// case-sensitive.
func propertyName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "--") {
		return name
	}
	return strings.ToLower(name)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

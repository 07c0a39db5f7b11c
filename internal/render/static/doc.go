// Package static renders HTML pages without a browser.
//
// The page is fetched over HTTP, decoded to UTF-8, parsed with
// golang.org/x/net/html and styled by a small CSS cascade: a user-agent
// stylesheet, author rules from <style> blocks and linked stylesheets
// (parsed with douceur and matched with cascadia), and inline style
// attributes. @media rules are evaluated against the surface viewport.
// Inherited properties (color, font-size, font-weight, visibility and
// custom properties) flow from parent to child.
//
// No layout is performed. Element positions are document-order estimates
// and scripts are not executed, so pages that build their content in
// JavaScript need the chrome engine.
package static

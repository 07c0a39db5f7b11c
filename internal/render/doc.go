// Package render loads web pages into isolated rendering surfaces and exposes
// the rendered document for inspection.
//
// A rendering Engine creates Surfaces. Each Surface is a private, off-screen
// page sized to a viewport: it is never shared between scans and must be
// closed exactly once. The Loader drives a Surface through navigation and a
// settle delay and hands the resulting dom.Document to the caller inside a
// Session whose Close releases the surface.
//
// Two engines are provided: render/chrome drives headless Chrome through the
// DevTools protocol, and render/static renders HTML and CSS without a browser.
package render

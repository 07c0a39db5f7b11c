// Package dom defines the read-only view of a rendered page that the contrast
// scanner inspects.
//
// Renderers (a headless browser, the static HTML renderer, or a test fake)
// all produce a Snapshot: a flat list of elements in document order, each
// carrying its computed style, geometry and the index of its parent. The
// Snapshot implements Document, and its elements implement Element, so the
// scanner never depends on a particular rendering engine.
//
// Parents always precede their children in a Snapshot. NewDocument rejects
// snapshots that violate this, which guarantees that walking up the ancestor
// chain terminates.
package dom

// Package contrast implements the WCAG 2.1 contrast checks applied to text.
//
// It has two halves. ResolveBackground walks up the ancestor chain of a
// rendered element to find the background actually painted behind it,
// accumulating ancestor opacity on the way. Evaluate computes the contrast
// ratio between a foreground and a background and classifies it against the
// AA and AAA thresholds for normal and large text.
package contrast

package dom

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Computed style properties read by the scanner.
const (
	PropDisplay         = "display"
	PropVisibility      = "visibility"
	PropOpacity         = "opacity"
	PropColor           = "color"
	PropBackgroundColor = "background-color"
	PropFontSize        = "font-size"
	PropFontWeight      = "font-weight"
)

var (
	// ErrStyleUnavailable is returned when the renderer could not compute the
	// style or geometry of an element.
	ErrStyleUnavailable = errors.New("computed style unavailable")

	// ErrMalformedSnapshot is returned when a snapshot's parent links are inconsistent.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// Position is the top-left corner of an element's bounding box in CSS pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is a handle to one element of a rendered document.
// It is valid only while the session that produced the document is open.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string

	// Markup returns the serialized element (its outer HTML).
	Markup() string

	// Text returns the element's text content. For text inputs it is the
	// rendered value or placeholder.
	Text() string

	// Style returns the computed value of a CSS property. An unknown property
	// yields an empty string and no error.
	Style(property string) (string, error)

	// Position returns the element's bounding box origin.
	Position() (Position, error)

	// Parent returns the parent element, or nil for the root.
	Parent() Element

	// Ignored reports whether the element sits inside a subtree the user
	// excluded from scanning.
	Ignored() bool
}

// Document is an inspectable rendered page.
type Document interface {
	// URL returns the final URL of the document after redirects.
	URL() string

	// Title returns the document title.
	Title() string

	// Elements returns the elements whose tag is in tags, in document order.
	// The "input" tag only matches inputs that render editable text.
	Elements(tags ...string) []Element
}

// Node is one serialized element of a Snapshot.
type Node struct {
	Tag       string            `json:"tag"`
	Markup    string            `json:"markup"`
	Text      string            `json:"text"`
	InputType string            `json:"inputType,omitempty"`
	Style     map[string]string `json:"style,omitempty"`
	X         float64           `json:"x"`
	Y         float64           `json:"y"`
	Parent    int               `json:"parent"`
	Ignored   bool              `json:"ignored,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Snapshot is a flat, document-ordered serialization of a rendered page.
type Snapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Nodes []Node `json:"nodes"`
}

// DecodeSnapshot decodes a JSON snapshot as produced by the browser renderer.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return &s, nil
}

// SnapshotDocument is the Document implementation backed by a Snapshot.
type SnapshotDocument struct {
	snapshot *Snapshot
	elements []*snapshotElement
}

// NewDocument validates a snapshot and wraps it as a Document.
// A parent index must be -1 (no parent) or refer to an earlier node.
func NewDocument(s *Snapshot) (*SnapshotDocument, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}

	doc := &SnapshotDocument{
		snapshot: s,
		elements: make([]*snapshotElement, len(s.Nodes)),
	}
	for i, n := range s.Nodes {
		if n.Parent < -1 || n.Parent >= i {
			return nil, fmt.Errorf("%w: node %d (%s) has parent %d", ErrMalformedSnapshot, i, n.Tag, n.Parent)
		}
		doc.elements[i] = &snapshotElement{doc: doc, index: i}
	}
	return doc, nil
}

// URL returns the document URL.
func (d *SnapshotDocument) URL() string {
	return d.snapshot.URL
}

// Title returns the document title.
func (d *SnapshotDocument) Title() string {
	return d.snapshot.Title
}

// Len returns the number of elements in the document.
func (d *SnapshotDocument) Len() int {
	return len(d.elements)
}

// Elements returns matching elements in document order.
func (d *SnapshotDocument) Elements(tags ...string) []Element {
	result := make([]Element, 0)
	for _, e := range d.elements {
		n := e.node()
		if !slices.Contains(tags, n.Tag) {
			continue
		}
		if n.Tag == "input" && !IsTextInput(n.InputType) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// textInputTypes lists input types whose value is rendered as editable text.
var textInputTypes = map[string]bool{
	"":         true,
	"text":     true,
	"search":   true,
	"email":    true,
	"url":      true,
	"tel":      true,
	"number":   true,
	"password": true,
}

// IsTextInput reports whether an <input> of the given type renders text.
func IsTextInput(inputType string) bool {
	return textInputTypes[strings.ToLower(strings.TrimSpace(inputType))]
}

type snapshotElement struct {
	doc   *SnapshotDocument
	index int
}

func (e *snapshotElement) node() *Node {
	return &e.doc.snapshot.Nodes[e.index]
}

func (e *snapshotElement) Tag() string    { return e.node().Tag }
func (e *snapshotElement) Markup() string { return e.node().Markup }
func (e *snapshotElement) Text() string   { return e.node().Text }
func (e *snapshotElement) Ignored() bool  { return e.node().Ignored }

func (e *snapshotElement) Style(property string) (string, error) {
	n := e.node()
	if n.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrStyleUnavailable, n.Error)
	}
	return strings.TrimSpace(n.Style[property]), nil
}

func (e *snapshotElement) Position() (Position, error) {
	n := e.node()
	if n.Error != "" {
		return Position{}, fmt.Errorf("%w: %s", ErrStyleUnavailable, n.Error)
	}
	return Position{X: n.X, Y: n.Y}, nil
}

func (e *snapshotElement) Parent() Element {
	p := e.node().Parent
	if p < 0 {
		return nil
	}
	return e.doc.elements[p]
}

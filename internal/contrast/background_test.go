package contrast

import (
	"errors"
	"math"
	"testing"

	"github.com/nao1215/contrastscan/internal/color"
	"github.com/nao1215/contrastscan/internal/dom"
)

func sameColor(a, b color.Color) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps &&
		math.Abs(a.B-b.B) < eps && math.Abs(a.A-b.A) < eps
}

// chain builds a document where each node is the parent of the next and
// returns the innermost element.
func chain(t *testing.T, styles ...map[string]string) dom.Element {
	t.Helper()

	nodes := make([]dom.Node, len(styles))
	for i, s := range styles {
		nodes[i] = dom.Node{Tag: "div", Style: s, Parent: i - 1}
	}
	nodes[len(nodes)-1].Tag = "p"

	doc, err := dom.NewDocument(&dom.Snapshot{Nodes: nodes})
	if err != nil {
		t.Fatalf("failed to build document: %v", err)
	}
	elements := doc.Elements("p")
	if len(elements) != 1 {
		t.Fatalf("expected one p element, got %d", len(elements))
	}
	return elements[0]
}

func TestResolveBackground(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		styles []map[string]string
		want   color.Color
	}{
		{
			name:   "no background anywhere is white",
			styles: []map[string]string{{}, {}, {dom.PropBackgroundColor: "rgba(0, 0, 0, 0)"}},
			want:   color.White,
		},
		{
			name: "opaque black is returned opaque regardless of ancestor opacity",
			styles: []map[string]string{
				{dom.PropOpacity: "0.2"},
				{dom.PropOpacity: "0.5"},
				{dom.PropBackgroundColor: "rgb(0, 0, 0)"},
			},
			want: color.Black,
		},
		{
			name: "transparent keyword walks up to parent",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "#336699"},
				{dom.PropBackgroundColor: "transparent"},
			},
			want: color.RGB(0x33, 0x66, 0x99),
		},
		{
			name: "ancestor opacity is accumulated",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "rgb(0, 0, 255)", dom.PropOpacity: "0.5"},
				{dom.PropOpacity: "0.5"},
				{},
			},
			want: color.Color{B: 1, A: 0.25},
		},
		{
			name: "opacity of the element itself is not applied",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "rgb(255, 0, 0)"},
				{dom.PropOpacity: "0.5"},
			},
			want: color.Color{R: 1, A: 1},
		},
		{
			name: "unparsable opacity counts as one",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "rgb(0, 255, 0)", dom.PropOpacity: "half"},
				{},
			},
			want: color.Color{G: 1, A: 1},
		},
		{
			name: "translucent background without ancestor opacity is made opaque",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "rgba(10, 20, 30, 0.3)"},
			},
			want: color.RGB(10, 20, 30),
		},
		{
			name: "zero alpha in another notation is transparent",
			styles: []map[string]string{
				{dom.PropBackgroundColor: "#000000"},
				{dom.PropBackgroundColor: "rgba(255, 255, 255, 0)"},
			},
			want: color.Black,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			el := chain(t, tt.styles...)
			got, err := ResolveBackground(el)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sameColor(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveBackgroundErrors(t *testing.T) {
	t.Parallel()

	t.Run("unparsable background", func(t *testing.T) {
		t.Parallel()

		el := chain(t, map[string]string{dom.PropBackgroundColor: "linear-gradient(red, blue)"})
		if _, err := ResolveBackground(el); !errors.Is(err, color.ErrInvalidFormat) {
			t.Errorf("expected ErrInvalidFormat, got %v", err)
		}
	})

	t.Run("style read failure on ancestor", func(t *testing.T) {
		t.Parallel()

		doc, err := dom.NewDocument(&dom.Snapshot{Nodes: []dom.Node{
			{Tag: "div", Parent: -1, Error: "detached"},
			{Tag: "p", Parent: 0},
		}})
		if err != nil {
			t.Fatalf("failed to build document: %v", err)
		}
		if _, err := ResolveBackground(doc.Elements("p")[0]); !errors.Is(err, dom.ErrStyleUnavailable) {
			t.Errorf("expected ErrStyleUnavailable, got %v", err)
		}
	})
}

func TestParseOpacity(t *testing.T) {
	t.Parallel()

	tests := map[string]float64{
		"":     1,
		"1":    1,
		"0":    0,
		"0.25": 0.25,
		"50%":  0.5,
		"2":    1,
		"-1":   0,
		"nope": 1,
	}
	for in, want := range tests {
		if got := ParseOpacity(in); got != want {
			t.Errorf("ParseOpacity(%q) = %v, want %v", in, got, want)
		}
	}
}

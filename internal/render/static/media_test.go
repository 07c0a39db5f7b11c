package static

import (
	"testing"

	"github.com/nao1215/contrastscan/internal/render"
)

func TestMatchMedia(t *testing.T) {
	t.Parallel()

	desktop := render.Viewport{Width: 1024, Height: 768}
	phone := render.Viewport{Width: 375, Height: 667}

	tests := []struct {
		query string
		vp    render.Viewport
		want  bool
	}{
		{"", desktop, true},
		{"all", desktop, true},
		{"screen", desktop, true},
		{"print", desktop, false},
		{"screen, print", desktop, true},
		{"not print", desktop, true},
		{"not screen", desktop, false},
		{"only screen and (min-width: 768px)", desktop, true},
		{"only screen and (min-width: 768px)", phone, false},
		{"(max-width: 600px)", phone, true},
		{"(max-width: 600px)", desktop, false},
		{"screen and (min-width: 40em)", desktop, true},
		{"screen and (min-width: 40em) and (max-width: 60em)", desktop, false},
		{"(width >= 1024px)", desktop, true},
		{"(width < 400px)", phone, true},
		{"(orientation: portrait)", phone, true},
		{"(orientation: portrait)", desktop, false},
		{"(prefers-color-scheme: dark)", desktop, false},
		{"(prefers-color-scheme: light)", desktop, true},
		{"(min-resolution: 2dppx)", desktop, false},
		{"(min-width: abc)", desktop, false},
		{"SCREEN AND (MIN-WIDTH: 100PX)", desktop, true},
	}
	for _, tt := range tests {
		t.Run(tt.query+"@"+tt.vp.String(), func(t *testing.T) {
			t.Parallel()
			if got := matchMedia(tt.query, tt.vp); got != tt.want {
				t.Errorf("matchMedia(%q, %v) = %v, want %v", tt.query, tt.vp, got, tt.want)
			}
		})
	}
}

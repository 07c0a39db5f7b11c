package render

import (
	"context"
	"fmt"

	"github.com/nao1215/contrastscan/internal/dom"
)

// Viewport is the size of a rendering surface in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultViewport is a representative desktop viewport, wide enough for
// responsive layouts to pick their desktop rules.
var DefaultViewport = Viewport{Width: 1024, Height: 768}

// Validate checks that both dimensions are positive.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidViewport, v.Width, v.Height)
	}
	return nil
}

// String returns the viewport as "WxH".
func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Surface is one isolated page.
type Surface interface {
	// Navigate loads url into the surface. Failures wrap ErrLoad.
	Navigate(ctx context.Context, url string) error

	// Document returns the rendered document. Failures wrap ErrDocumentAccess.
	Document(ctx context.Context) (dom.Document, error)

	// Close releases the surface and everything it owns.
	Close() error
}

// Engine creates rendering surfaces.
type Engine interface {
	// Name identifies the engine in reports and logs.
	Name() string

	// NewSurface allocates a surface sized to vp.
	NewSurface(ctx context.Context, vp Viewport) (Surface, error)
}

package render

import "errors"

// Loader errors.
var (
	// ErrLoad is returned when a page cannot be loaded: an invalid URL, a
	// network or navigation error, or a navigation timeout.
	ErrLoad = errors.New("page load failed")

	// ErrDocumentAccess is returned when a loaded surface cannot expose an
	// inspectable document.
	ErrDocumentAccess = errors.New("document access failed")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("render session closed")

	// ErrInvalidViewport is returned for non-positive viewport dimensions.
	ErrInvalidViewport = errors.New("viewport width and height must be positive")
)

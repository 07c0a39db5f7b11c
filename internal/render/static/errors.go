package static

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrNotHTML is returned when the response is not an HTML document.
	ErrNotHTML = errors.New("response is not an HTML document")

	// ErrNotNavigated is returned when the document is requested before a
	// successful navigation.
	ErrNotNavigated = errors.New("no page has been loaded")
)

package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailure indicates the page could not be loaded: the URL was
	// invalid, unreachable, or navigation did not finish in time.
	ErrLoadFailure = errors.New("invalid URL or load failure")

	// ErrDocumentAccess indicates the page loaded but its content could not
	// be inspected.
	ErrDocumentAccess = errors.New("document access failure")

	// ErrScanFailure indicates the scan stopped while walking the document,
	// for example because it was cancelled.
	ErrScanFailure = errors.New("scan failure")
)

// Kind classifies a failed scan.
type Kind int

const (
	// KindLoad means the page could not be loaded.
	KindLoad Kind = iota + 1
	// KindDocumentAccess means the loaded page could not be inspected.
	KindDocumentAccess
	// KindScan means the scan failed after the document was available.
	KindScan
)

// User-facing messages of CheckError.
const (
	msgAnalyzeFailed  = "Failed to analyze color contrast. Please check the URL and try again."
	msgDocumentAccess = "Could not access page content."
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindDocumentAccess:
		return "document_access"
	case KindScan:
		return "scan"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindLoad:
		return ErrLoadFailure
	case KindDocumentAccess:
		return ErrDocumentAccess
	default:
		return ErrScanFailure
	}
}

// CheckError is returned when a scan could not complete.
// Its message is meant for end users; the underlying cause is available via
// errors.Unwrap, errors.Is and errors.As, and through Detail.
type CheckError struct {
	Kind Kind
	URL  string
	Err  error
}

func newCheckError(kind Kind, url string, err error) *CheckError {
	return &CheckError{Kind: kind, URL: url, Err: err}
}

// Error returns the user-facing message.
func (e *CheckError) Error() string {
	if e.Kind == KindDocumentAccess {
		return msgDocumentAccess
	}
	return msgAnalyzeFailed
}

// Detail describes the underlying cause for logs.
func (e *CheckError) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failure for %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s failure for %s: %v", e.Kind, e.URL, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *CheckError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

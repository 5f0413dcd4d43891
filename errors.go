package html2pdf

import (
	"context"
	"errors"

	"github.com/alnah/go-html2pdf/internal/storage"
)

// Sentinel errors for library operations.
var (
	// Input validation errors.
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidSourceKind = errors.New("invalid render source")
	ErrInvalidPageFormat = errors.New("invalid page format")
	ErrInvalidMargin     = errors.New("invalid margin")
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrNoFile            = errors.New("no file uploaded")
	ErrUploadTooLarge    = errors.New("uploaded file is too large")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrNavigation     = errors.New("failed to navigate to URL")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrRenderTimeout  = errors.New("render timed out")

	// Storage errors, re-exported so callers need a single import.
	ErrUnsupportedExtension = storage.ErrUnsupportedExtension
	ErrAccessDenied         = storage.ErrAccessDenied
	ErrNotFound             = storage.ErrNotFound
)

// Kind classifies an error for the HTTP boundary.
type Kind int

// Error kinds, from most to least specific.
const (
	KindInternal Kind = iota
	KindValidation
	KindNavigation
	KindAccessDenied
	KindNotFound
	KindRender
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNavigation:
		return "navigation"
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindRender:
		return "render"
	default:
		return "internal"
	}
}

// KindOf classifies err. It uses errors.Is, so callers must wrap with %w.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal

	case errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrInvalidSourceKind),
		errors.Is(err, ErrInvalidPageFormat),
		errors.Is(err, ErrInvalidMargin),
		errors.Is(err, ErrInvalidViewport),
		errors.Is(err, ErrNoFile),
		errors.Is(err, ErrUploadTooLarge),
		errors.Is(err, storage.ErrUnsupportedExtension),
		errors.Is(err, storage.ErrEmptyName):
		return KindValidation

	case errors.Is(err, ErrNavigation):
		return KindNavigation

	case errors.Is(err, storage.ErrAccessDenied):
		return KindAccessDenied

	case errors.Is(err, storage.ErrNotFound):
		return KindNotFound

	case errors.Is(err, ErrBrowserConnect),
		errors.Is(err, ErrPageCreate),
		errors.Is(err, ErrPageLoad),
		errors.Is(err, ErrPDFGeneration),
		errors.Is(err, ErrRenderTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindRender
	}

	return KindInternal
}

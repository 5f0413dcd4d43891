package storage

import "errors"

// Sentinel errors for storage operations.
var (
	ErrUnsupportedExtension = errors.New("only HTML files are allowed")
	ErrAccessDenied         = errors.New("access denied")
	ErrNotFound             = errors.New("file not found")
	ErrEmptyName            = errors.New("file name cannot be empty")
)

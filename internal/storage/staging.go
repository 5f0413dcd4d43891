package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// AllowedUploadExtensions lists the accepted upload extensions (case-insensitive).
var AllowedUploadExtensions = []string{".html", ".htm"}

// ValidateUploadName rejects names whose extension is not an HTML one.
func ValidateUploadName(filename string) error {
	if filename == "" {
		return ErrEmptyName
	}
	if !fileutil.HasExtension(filename, AllowedUploadExtensions...) {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(filename))
	}
	return nil
}

// Staging persists uploaded documents until they are converted.
// The directory is created lazily on the first accepted upload.
type Staging struct {
	dir string
	now func() time.Time
}

// NewStaging returns a Staging rooted at dir.
func NewStaging(dir string) *Staging {
	return &Staging{dir: dir, now: time.Now}
}

// Dir returns the staging directory.
func (s *Staging) Dir() string {
	return s.dir
}

// Stage validates filename, then copies src into the staging directory.
// Nothing is written when validation fails. On a copy failure the partial file
// is removed before returning.
func (s *Staging) Stage(filename string, src io.Reader) (*StagedFile, error) {
	if err := ValidateUploadName(filename); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	name := NewName(s.now(), fileutil.Stem(filename), filepath.Ext(filename))
	path := filepath.Join(s.dir, name)

	// #nosec G304 -- path is built from a sanitized generated name
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("writing staged file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("closing staged file: %w", err)
	}

	return &StagedFile{OriginalName: filename, Path: path}, nil
}

// StagedFile is an accepted upload waiting for conversion.
// The converting request owns it and must call Release on every exit path.
type StagedFile struct {
	OriginalName string
	Path         string

	once sync.Once
	err  error
}

// ReadContent returns the staged document as a string.
func (f *StagedFile) ReadContent() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("reading staged file: %w", err)
	}
	return string(data), nil
}

// Release removes the staged file. Safe to call more than once.
func (f *StagedFile) Release() error {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = fmt.Errorf("removing staged file: %w", err)
		}
	})
	return f.err
}

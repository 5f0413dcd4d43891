package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// PDFExtension is appended to every generated file name.
const PDFExtension = ".pdf"

// Entry describes one generated PDF.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Registry is the directory-backed catalog of generated PDFs.
type Registry struct {
	dir     string // absolute, cleaned
	realDir string // dir with symlinks evaluated
	now     func() time.Time
}

// NewRegistry creates dir if needed and returns a Registry rooted at it.
func NewRegistry(dir string) (*Registry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	return &Registry{dir: abs, realDir: real, now: time.Now}, nil
}

// Dir returns the absolute outbound directory.
func (r *Registry) Dir() string {
	return r.dir
}

// NewName returns a fresh PDF file name derived from source.
func (r *Registry) NewName(source string) string {
	return NewName(r.now(), source, PDFExtension)
}

// Commit atomically writes data under name.
func (r *Registry) Commit(name string, data []byte) (Entry, error) {
	if _, err := r.Resolve(name); err != nil {
		return Entry{}, err
	}
	if err := fileutil.WriteAtomic(r.dir, name, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("committing %s: %w", name, err)
	}
	return r.stat(name)
}

// List returns every generated PDF, newest first.
// Equal modification times are ordered by name, descending.
func (r *Registry) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	files := lo.Filter(dirEntries, func(e os.DirEntry, _ int) bool {
		return e.Type().IsRegular() && !strings.HasPrefix(e.Name(), fileutil.TempPrefix)
	})

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			// Deleted between ReadDir and Info.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		entries = append(entries, Entry{Name: f.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].ModTime.After(entries[j].ModTime)
		}
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

// Resolve maps name to an absolute path inside the outbound directory.
// Returns ErrAccessDenied if the cleaned path, or the symlink-evaluated path
// when the file exists, escapes the directory. Absolute names are not joined
// onto the directory and are therefore denied unless they point inside it.
func (r *Registry) Resolve(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", ErrAccessDenied
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, name)
	}
	path = filepath.Clean(path)

	if !within(r.dir, path) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, name)
	}

	real, err := filepath.EvalSymlinks(path)
	switch {
	case err == nil:
		if !within(r.realDir, real) {
			return "", fmt.Errorf("%w: %s", ErrAccessDenied, name)
		}
	case errors.Is(err, os.ErrNotExist):
		// A dangling link still must not point outside.
		if target, linkErr := os.Readlink(path); linkErr == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(path), target)
			}
			if !within(r.dir, filepath.Clean(target)) && !within(r.realDir, filepath.Clean(target)) {
				return "", fmt.Errorf("%w: %s", ErrAccessDenied, name)
			}
		}
	case errors.Is(err, syscall.ENOTDIR):
		// A path component is a regular file.
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	default:
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}

	return path, nil
}

// Open resolves name and opens it for reading.
// The caller closes the returned file.
func (r *Registry) Open(name string) (*os.File, Entry, error) {
	path, err := r.Resolve(name)
	if err != nil {
		return nil, Entry{}, err
	}

	// #nosec G304 -- path passed the containment check above
	f, err := os.Open(path)
	if err != nil {
		if isMissing(err) {
			return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, Entry{}, fmt.Errorf("opening %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Entry{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, Entry{Name: filepath.Base(path), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete resolves name and removes it.
func (r *Registry) Delete(name string) error {
	path, err := r.Resolve(name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if isMissing(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := os.Remove(path); err != nil {
		if isMissing(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

func (r *Registry) stat(name string) (Entry, error) {
	info, err := os.Stat(filepath.Join(r.dir, name))
	if err != nil {
		return Entry{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return Entry{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// isMissing reports whether err means no file exists at the path, including
// paths that descend through a regular file.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// within reports whether path lies strictly inside root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

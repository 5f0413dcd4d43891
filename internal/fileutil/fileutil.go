// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNameInvalid is returned when a file name would escape its directory.
var ErrNameInvalid = errors.New("file name contains path separator or null byte")

// TempPrefix marks in-flight files. Directory listings skip names carrying it.
const TempPrefix = ".tmp-"

// maxStemLength caps the sanitized part of generated file names.
const maxStemLength = 80

// WriteAtomic writes data to dir/name through a hidden temporary file in the
// same directory, then renames it into place. Readers never observe a
// partially written file under name.
func WriteAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if name == "" || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrNameInvalid, name)
	}

	tmpFile, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	committed = true
	return nil
}

// HasExtension reports whether name ends with one of the given extensions,
// compared case-insensitively. Extensions include the leading dot.
func HasExtension(name string, extensions ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Stem returns the base name of path without its extension.
// Both / and \ are treated as separators since uploaded names come from
// arbitrary clients.
func Stem(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// SanitizeName reduces s to a portable file name fragment.
// Runs of characters outside [A-Za-z0-9._-] collapse to a single '-',
// leading dots and dashes are trimmed, and the result is capped in length.
// Returns fallback when nothing usable remains.
//
// Examples:
//   - "Quarterly Report" -> "Quarterly-Report"
//   - "../../etc/passwd" -> "etc-passwd"
//   - "été.html"         -> "t-.html"
func SanitizeName(s, fallback string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteRune(r)
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteByte('-')
			}
			lastDash = true
		}
	}

	out := strings.TrimLeft(b.String(), ".-")
	if len(out) > maxStemLength {
		out = out[:maxStemLength]
	}
	out = strings.TrimRight(out, ".-")
	if out == "" {
		return fallback
	}
	return out
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsDirWritable reports whether a file can be created inside dir.
func IsDirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, TempPrefix+"writecheck-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// Package pathnorm canonicalizes file paths so that string equality implies
// filesystem path equality.
package pathnorm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

// Normalize makes p absolute against the process working directory and cleans
// it.
func Normalize(p string) (string, error) {
	if err := check(p); err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return NormalizeFrom("", p)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return NormalizeFrom(wd, p)
}

// NormalizeFrom is Normalize with an explicit base directory for relative
// paths. It performs no I/O.
func NormalizeFrom(base, p string) (string, error) {
	if err := check(p); err != nil {
		return "", err
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		if base == "" || !filepath.IsAbs(base) {
			return "", fmt.Errorf("%w: relative path %q without absolute base", ErrInvalidPath, p)
		}
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	// Drive letters compare case-insensitively on Windows; pick one spelling.
	if vol := filepath.VolumeName(p); len(vol) == 2 && vol[1] == ':' {
		p = strings.ToUpper(vol) + p[len(vol):]
	}
	return p, nil
}

// Slash returns the forward-slash form used for rule matching.
func Slash(p string) string {
	return filepath.ToSlash(p)
}

// Within reports whether p equals root or lies beneath it. Both must be
// normalized.
func Within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

func check(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: contains NUL: %q", ErrInvalidPath, p)
	}
	return nil
}

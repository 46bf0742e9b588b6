package pathnorm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
)

const maxLinkHops = 40

var (
	ErrTooManyLinks = errors.New("too many levels of symbolic links")
	errNotAbsolute  = errors.New("path is not absolute")
)

// Resolve returns the absolute path p with every symlink resolved. Unlike
// Normalize it reads the filesystem, through billy so that osfs and memfs
// behave the same.
func Resolve(fsys billy.Filesystem, p string) (string, error) {
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s", errNotAbsolute, p)
	}
	vol := filepath.VolumeName(p)
	rootDir := vol + string(filepath.Separator)
	pending := splitPath(p[len(vol):])
	cur := rootDir
	hops := 0
	for len(pending) > 0 {
		part := pending[0]
		pending = pending[1:]
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
			continue
		}
		next := filepath.Join(cur, part)
		info, err := fsys.Lstat(next)
		if err != nil {
			return "", fmt.Errorf("lstat %s: %w", next, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			cur = next
			continue
		}
		hops++
		if hops > maxLinkHops {
			return "", fmt.Errorf("%w: %s", ErrTooManyLinks, p)
		}
		target, err := fsys.Readlink(next)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", next, err)
		}
		target = filepath.FromSlash(target)
		if filepath.IsAbs(target) {
			tv := filepath.VolumeName(target)
			cur = tv + string(filepath.Separator)
			target = target[len(tv):]
		}
		pending = append(splitPath(target), pending...)
	}
	return cur, nil
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, string(filepath.Separator)), string(filepath.Separator))
}

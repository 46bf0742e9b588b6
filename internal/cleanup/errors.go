package cleanup

import "errors"

var (
	ErrOutsideRoots   = errors.New("path is outside the configured roots")
	ErrIsDirectory    = errors.New("path is a directory")
	ErrThroughSymlink = errors.New("path traverses a symlinked directory")

	errTooDeep = errors.New("maximum depth exceeded")
	errNotDir  = errors.New("not a directory")
)

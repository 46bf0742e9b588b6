package inventory

import "errors"

var (
	ErrRootMissing = errors.New("root does not exist")

	errRootNotDir = errors.New("root is not a directory")
	errTooDeep    = errors.New("maximum depth exceeded")
)

package engine

import "errors"

var (
	ErrNoRoots     = errors.New("no usable roots configured")
	ErrNoReachable = errors.New("reachable set not supplied")
	ErrNoHandler   = errors.New("delegate mode requires a handler")
	ErrUnknownMode = errors.New("unknown mode")
)

// Package issue holds the per-path failures a run accumulates instead of
// aborting.
package issue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

type Kind string

const (
	KindInvalidPath   Kind = "invalid_path"
	KindTraversal     Kind = "traversal"
	KindDeletion      Kind = "deletion"
	KindPrune         Kind = "prune"
	KindConfiguration Kind = "configuration"
	KindHandler       Kind = "handler"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrTraversal     = errors.New("traversal failed")
	ErrDeletion      = errors.New("deletion failed")
	ErrPrune         = errors.New("prune failed")
	ErrConfiguration = errors.New("invalid configuration")
	ErrHandler       = errors.New("handler failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidPath:
		return ErrInvalidPath
	case KindTraversal:
		return ErrTraversal
	case KindDeletion:
		return ErrDeletion
	case KindPrune:
		return ErrPrune
	case KindConfiguration:
		return ErrConfiguration
	case KindHandler:
		return ErrHandler
	default:
		return nil
	}
}

// Issue is a failure scoped to one path. It matches both its kind sentinel and
// its cause with errors.Is.
type Issue struct {
	Path string
	Kind Kind
	Err  error
}

func New(kind Kind, path string, err error) Issue {
	return Issue{Path: path, Kind: kind, Err: err}
}

func (i Issue) Error() string {
	switch {
	case i.Path == "":
		return fmt.Sprintf("%s: %v", i.Kind, i.Err)
	case i.Err == nil:
		return fmt.Sprintf("%s: %s", i.Kind, i.Path)
	default:
		return fmt.Sprintf("%s: %s: %v", i.Kind, i.Path, i.Err)
	}
}

func (i Issue) MarshalJSON() ([]byte, error) {
	v := struct {
		Path  string `json:"path,omitempty"`
		Kind  Kind   `json:"kind"`
		Error string `json:"error,omitempty"`
	}{Path: i.Path, Kind: i.Kind}
	if i.Err != nil {
		v.Error = i.Err.Error()
	}
	return json.Marshal(v)
}

func (i Issue) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := i.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if i.Err != nil {
		errs = append(errs, i.Err)
	}
	return errs
}

type Issues []Issue

func (is Issues) Error() string {
	switch len(is) {
	case 0:
		return "no issues"
	case 1:
		return is[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", is[0].Error(), len(is)-1)
	}
}

// Sorted returns a copy ordered by path, then kind, then message.
func (is Issues) Sorted() Issues {
	out := make(Issues, len(is))
	copy(out, is)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Path != out[b].Path {
			return out[a].Path < out[b].Path
		}
		if out[a].Kind != out[b].Kind {
			return out[a].Kind < out[b].Kind
		}
		return out[a].Error() < out[b].Error()
	})
	return out
}

// OfKind filters issues by kind, preserving order.
func (is Issues) OfKind(kind Kind) Issues {
	var out Issues
	for _, i := range is {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

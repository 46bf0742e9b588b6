package rules

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// Glob is a gitignore-style pattern matched against the path as if the
// filesystem root were the rules directory. '*' and '?' stay within one
// segment, '**' spans segments, a leading '/' anchors at the filesystem root
// and a trailing '/' selects everything under a matching directory.
type Glob struct {
	expr string
	m    *pathrules.Matcher
}

func NewGlob(pat string, ignoreCase bool) (Glob, error) {
	if strings.TrimSpace(pat) == "" {
		return Glob{}, ErrEmptyRule
	}
	m, err := pathrules.NewMatcher(
		[]pathrules.Rule{{Pattern: pat, Action: pathrules.ActionInclude}},
		pathrules.MatcherOptions{CaseInsensitive: ignoreCase, DefaultAction: pathrules.ActionExclude},
	)
	if err != nil {
		return Glob{}, fmt.Errorf("compile glob %q: %w", pat, err)
	}
	return Glob{expr: pat, m: m}, nil
}

// Match treats path as a file; directory-only patterns match its parents.
func (g Glob) Match(path string) bool { return g.m != nil && g.m.Decide(path, false).Matched }
func (g Glob) String() string         { return "glob:" + g.expr }

// Package rules matches canonical paths against ordered keep and
// ignore-as-dependency patterns.
//
// A pattern is a literal substring, a regular expression or a gitignore-style
// glob. Patterns are validated once, when a Set is compiled; values that cannot
// become a pattern are dropped so a bad rule never blocks a cleanup.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
)

var (
	ErrInvalidRule = errors.New("invalid rule")
	ErrEmptyRule   = errors.New("empty pattern")
)

// Pattern tests one canonical path in its slash form.
type Pattern interface {
	Match(path string) bool
	String() string
}

type Literal struct {
	Text string
}

func (l Literal) Match(path string) bool { return strings.Contains(path, l.Text) }
func (l Literal) String() string         { return "literal:" + l.Text }

type Regex struct {
	re *regexp.Regexp
}

func NewRegex(expr string, ignoreCase bool) (Regex, error) {
	if expr == "" {
		return Regex{}, ErrEmptyRule
	}
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Regex{}, fmt.Errorf("compile %q: %w", expr, err)
	}
	return Regex{re: re}, nil
}

func (r Regex) Match(path string) bool { return r.re != nil && r.re.MatchString(path) }
func (r Regex) String() string {
	if r.re == nil {
		return "regex:"
	}
	return "regex:" + r.re.String()
}

// Set is an ordered list of compiled patterns.
type Set struct {
	patterns []Pattern
}

func NewSet(patterns ...Pattern) Set {
	return Set{patterns: append([]Pattern(nil), patterns...)}
}

// Compile turns specs into a Set. Specs that fail to compile are skipped and
// reported in the returned slice; the Set is always usable.
func Compile(specs []Spec) (Set, []error) {
	var dropped []error
	patterns := make([]Pattern, 0, len(specs))
	for i, s := range specs {
		p, err := s.Pattern()
		if err != nil {
			dropped = append(dropped, fmt.Errorf("rule[%d] %s: %w", i, s, err))
			continue
		}
		patterns = append(patterns, p)
	}
	return Set{patterns: patterns}, dropped
}

// MatchesAny reports whether any pattern matches path. Matching stops at the
// first hit.
func (s Set) MatchesAny(path string) bool {
	if len(s.patterns) == 0 {
		return false
	}
	slashed := pathnorm.Slash(path)
	for _, p := range s.patterns {
		if p.Match(slashed) {
			return true
		}
	}
	return false
}

func (s Set) Len() int { return len(s.patterns) }

func (s Set) Patterns() []Pattern { return append([]Pattern(nil), s.patterns...) }

package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spec is a rule as written in configuration.
//
// A bare string is a regular expression. A mapping selects the variant
// explicitly:
//
//	keep:
//	  - 'readme\.md'
//	  - literal: /utils/
//	  - regex: '\.snap$'
//	    ignore_case: true
//	  - glob: '**/fixtures/'
//
// Decoding never fails; malformed values are remembered and rejected by
// Pattern so Compile can drop them.
type Spec struct {
	Literal    string `yaml:"literal,omitempty"    json:"literal,omitempty"`
	Regex      string `yaml:"regex,omitempty"      json:"regex,omitempty"`
	Glob       string `yaml:"glob,omitempty"       json:"glob,omitempty"`
	IgnoreCase bool   `yaml:"ignore_case,omitempty" json:"ignore_case,omitempty"`

	hasLiteral bool
	hasRegex   bool
	hasGlob    bool
	invalid    string
}

func LiteralSpec(text string) Spec { return Spec{Literal: text, hasLiteral: true} }
func RegexSpec(expr string) Spec   { return Spec{Regex: expr, hasRegex: true} }
func GlobSpec(pat string) Spec     { return Spec{Glob: pat, hasGlob: true} }

func (s *Spec) UnmarshalYAML(n *yaml.Node) error {
	*s = Spec{}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			s.invalid = fmt.Sprintf("unsupported scalar %s %q", n.ShortTag(), n.Value)
			return nil
		}
		s.Regex, s.hasRegex = n.Value, true
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			switch k.Value {
			case "literal":
				if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
					s.invalid = "literal must be a string"
					return nil
				}
				s.Literal, s.hasLiteral = v.Value, true
			case "regex":
				if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
					s.invalid = "regex must be a string"
					return nil
				}
				s.Regex, s.hasRegex = v.Value, true
			case "glob":
				if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
					s.invalid = "glob must be a string"
					return nil
				}
				s.Glob, s.hasGlob = v.Value, true
			case "ignore_case":
				var b bool
				if err := v.Decode(&b); err != nil {
					s.invalid = "ignore_case must be a boolean"
					return nil
				}
				s.IgnoreCase = b
			default:
				s.invalid = fmt.Sprintf("unknown key %q", k.Value)
				return nil
			}
		}
	default:
		s.invalid = "rule must be a string or a mapping"
	}
	return nil
}

// Pattern validates the rule and builds its pattern.
func (s Spec) Pattern() (Pattern, error) {
	switch {
	case s.invalid != "":
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, s.invalid)
	case s.variants() > 1:
		return nil, fmt.Errorf("%w: literal, regex and glob are mutually exclusive", ErrInvalidRule)
	case s.hasLiteral:
		if s.Literal == "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRule, ErrEmptyRule)
		}
		return Literal{Text: s.Literal}, nil
	case s.hasRegex:
		re, err := NewRegex(s.Regex, s.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
		return re, nil
	case s.hasGlob:
		g, err := NewGlob(s.Glob, s.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: no literal, regex or glob set", ErrInvalidRule)
	}
}

func (s Spec) variants() int {
	n := 0
	for _, set := range []bool{s.hasLiteral, s.hasRegex, s.hasGlob} {
		if set {
			n++
		}
	}
	return n
}

func (s Spec) String() string {
	switch {
	case s.invalid != "":
		return "<invalid>"
	case s.variants() > 1:
		return "<ambiguous>"
	case s.hasLiteral:
		return fmt.Sprintf("literal %q", s.Literal)
	case s.hasRegex:
		return fmt.Sprintf("regex %q", s.Regex)
	case s.hasGlob:
		return fmt.Sprintf("glob %q", s.Glob)
	default:
		return "<empty>"
	}
}

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yegor-usoltsev/orphanctl/internal/rules"
	"github.com/yegor-usoltsev/orphanctl/internal/schema"
)

type Error struct {
	Path string
	Msg  string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

type Errors []Error

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
	}
}

// Validate checks a loaded file strictly: schema violations and every rule
// that a run would silently drop are reported.
func Validate(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if _, err := schema.V0(); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	errPath := f.Path
	if errPath == "" {
		errPath = DefaultFile
	}
	var errs Errors
	add := func(format string, args ...any) {
		errs = append(errs, Error{Path: errPath, Msg: fmt.Sprintf(format, args...)})
	}

	if len(bytes.TrimSpace(f.Raw)) == 0 && f.Path != "" {
		add("empty config")
		return errs
	}
	if f.Path != "" {
		if err := validateSchema(f.Raw); err != nil {
			add("JSON schema validation failed: %v", err)
		}
	}

	c := f.Config
	if strings.TrimSpace(c.Schema) == "" {
		add("$schema is required and must be %q", schema.V0URL)
	} else if c.Schema != schema.V0URL {
		add("$schema must be %q", schema.V0URL)
	}
	for i, r := range c.Roots {
		if strings.TrimSpace(r) == "" {
			add("roots[%d] is empty", i)
		}
	}
	if _, err := f.Roots(); err != nil {
		add("roots: %v", err)
	}
	if _, err := f.OutputLogsPath(); err != nil {
		add("output_logs_path: %v", err)
	}
	for name, specs := range map[string][]rules.Spec{"keep": c.Keep, "ignore_as_dependency": c.IgnoreAsDependency} {
		_, dropped := rules.Compile(specs)
		for _, err := range dropped {
			add("%s: %v", name, err)
		}
	}
	if len(c.Handler) > 0 && strings.TrimSpace(c.Handler[0]) == "" {
		add("handler[0] must name a command")
	}
	if c.Parallel < 0 {
		add("parallel must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Msg < errs[j].Msg })
	return errs
}

func validateSchema(raw []byte) error {
	err := schema.ValidateYAML(raw)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return schemaError{msg: formatSchemaErr(err)}
	}
	return err
}

type schemaError struct{ msg string }

func (e schemaError) Error() string { return e.msg }

func formatSchemaErr(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		b, mErr := json.Marshal(ve.BasicOutput())
		if mErr != nil {
			return "schema: " + err.Error()
		}
		return "schema: " + string(b)
	}
	return "schema: " + err.Error()
}

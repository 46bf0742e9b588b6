// Package schema embeds the JSON schema of orphanctl.yaml.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const V0URL = "https://orphanctl.usoltsev.xyz/v0.json"

var errEmptySchema = errors.New("embedded schema is empty")

//go:embed v0.json
var v0Bytes []byte

var v0 = sync.OnceValues(func() (*jsonschema.Schema, error) { return compile(V0URL, v0Bytes) })

// V0 returns the compiled v0 schema. Compilation happens once per process.
func V0() (*jsonschema.Schema, error) { return v0() }

// ValidateYAML decodes a YAML config and checks it against the v0 schema. A
// violation is returned as *jsonschema.ValidationError.
func ValidateYAML(raw []byte) error {
	s, err := V0()
	if err != nil {
		return err
	}
	doc, err := yamlToJSON(raw)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}

func compile(url string, raw []byte) (*jsonschema.Schema, error) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return nil, errEmptySchema
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse embedded schema %s: %w", url, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", url, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return s, nil
}

// yamlToJSON round-trips through JSON so the validator sees JSON types only
// (float64 numbers, map[string]any objects).
func yamlToJSON(raw []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	out, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return out, nil
}

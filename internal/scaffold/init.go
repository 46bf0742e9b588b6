package scaffold

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/yegor-usoltsev/orphanctl/internal/config"
	"github.com/yegor-usoltsev/orphanctl/internal/schema"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const HandlerFile = "orphanctl-review.sh"

var errConfigExists = errors.New("config file already exists")

type InitOptions struct {
	Dir        string
	File       string
	Roots      []string
	AutoDelete bool
	// Handler also writes a review script and points the config at it.
	Handler bool
}

type templateData struct {
	SchemaURL   string
	Roots       []string
	AutoDelete  bool
	Handler     bool
	HandlerFile string
}

// InitConfig writes a starter config (and optionally a handler script) into
// opts.Dir. Existing files are never overwritten.
func InitConfig(ctx context.Context, opts InitOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("init: %w", err)
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = "."
	}
	name := strings.TrimSpace(opts.File)
	if name == "" {
		name = config.DefaultFile
	}
	roots := opts.Roots
	if len(roots) == 0 {
		roots = []string{config.DefaultRoot}
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", errConfigExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config: %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir config dir: %w", err)
	}

	data := templateData{
		SchemaURL:   schema.V0URL,
		Roots:       roots,
		AutoDelete:  opts.AutoDelete,
		Handler:     opts.Handler,
		HandlerFile: HandlerFile,
	}
	if opts.Handler {
		if err := renderToFile(filepath.Join(filepath.Dir(path), HandlerFile), 0o755, "review.sh.tmpl", data); err != nil {
			return "", err
		}
	}
	if err := renderToFile(path, 0o644, "orphanctl.yaml.tmpl", data); err != nil {
		return "", err
	}
	return path, nil
}

func renderToFile(path string, perm fs.FileMode, name string, data templateData) error {
	b, err := renderTemplate(name, data)
	if err != nil {
		return err
	}
	return writeExclusive(path, perm, b)
}

func renderTemplate(name string, data templateData) ([]byte, error) {
	p := "templates/" + name
	t, err := template.New(name).Option("missingkey=error").ParseFS(templatesFS, p)
	if err != nil {
		return nil, fmt.Errorf("parse template: %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func writeExclusive(path string, perm fs.FileMode, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create file: %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("write file: %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %s: %w", path, err)
	}
	return nil
}

// Package config loads orphanctl.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yegor-usoltsev/orphanctl/internal/engine"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
	"github.com/yegor-usoltsev/orphanctl/internal/rules"
	"github.com/yegor-usoltsev/orphanctl/internal/schema"
)

const (
	DefaultFile           = "orphanctl.yaml"
	DefaultRoot           = "./src"
	DefaultOutputLogsPath = "./orphanctl.json"
)

var ErrNotFound = errors.New("config file not found")

// Config is the on-disk orphanctl.yaml structure.
type Config struct {
	Schema             string       `yaml:"$schema,omitempty"`
	Roots              []string     `yaml:"roots"`
	AutoDelete         bool         `yaml:"auto_delete"`
	OutputLogs         *bool        `yaml:"output_logs,omitempty"`
	OutputLogsPath     string       `yaml:"output_logs_path,omitempty"`
	Keep               []rules.Spec `yaml:"keep,omitempty"`
	IgnoreAsDependency []rules.Spec `yaml:"ignore_as_dependency,omitempty"`
	Handler            []string     `yaml:"handler,omitempty"`
	Parallel           int          `yaml:"parallel,omitempty"`
}

// File is a loaded config with the location it was read from. Relative paths
// in Config resolve against Dir.
type File struct {
	Path   string
	Dir    string
	Raw    []byte
	Config Config
}

// Default returns the configuration used when no file exists.
func Default(dir string) File {
	return File{Dir: dir, Config: Config{Schema: schema.V0URL}}
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return File{}, fmt.Errorf("read config: %s: %w", path, err)
	}
	abs, err := pathnorm.Normalize(path)
	if err != nil {
		return File{}, fmt.Errorf("config path: %w", err)
	}
	f := File{Path: abs, Dir: filepath.Dir(abs), Raw: raw}
	if err := yaml.Unmarshal(raw, &f.Config); err != nil {
		return File{}, fmt.Errorf("parse yaml: %s: %w", path, err)
	}
	return f, nil
}

// Roots returns the configured roots resolved against the config directory,
// falling back to ./src.
func (f File) Roots() ([]string, error) {
	roots := f.Config.Roots
	if len(roots) == 0 {
		roots = []string{DefaultRoot}
	}
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		p, err := f.resolve(r)
		if err != nil {
			return nil, fmt.Errorf("root %q: %w", r, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// OutputLogsPath returns where the plan artifact goes, or "" when logging is
// disabled.
func (f File) OutputLogsPath() (string, error) {
	if f.Config.OutputLogs != nil && !*f.Config.OutputLogs {
		return "", nil
	}
	p := f.Config.OutputLogsPath
	if strings.TrimSpace(p) == "" {
		p = DefaultOutputLogsPath
	}
	return f.resolve(p)
}

// Mode derives the run mode: a handler command means delegate, then
// auto_delete, otherwise report only.
func (f File) Mode() engine.Mode {
	switch {
	case len(f.Config.Handler) > 0:
		return engine.ModeDelegate
	case f.Config.AutoDelete:
		return engine.ModeAutoDelete
	default:
		return engine.ModeReportOnly
	}
}

func (f File) resolve(p string) (string, error) {
	if f.Dir == "" {
		return pathnorm.Normalize(p)
	}
	return pathnorm.NormalizeFrom(f.Dir, p)
}

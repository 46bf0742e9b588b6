// Package report renders run results for people and for tooling.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"

	"github.com/yegor-usoltsev/orphanctl/internal/engine"
	"github.com/yegor-usoltsev/orphanctl/internal/reconcile"
)

// WritePlan replaces the file at path with the plan as an indented JSON array.
// The write goes through a temp file in the same directory and a rename, so
// readers never see a partial artifact.
func WritePlan(fsys billy.Filesystem, path string, plan reconcile.Plan) error {
	data, err := json.MarshalIndent(plan, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := fsys.TempFile(dir, ".orphanctl-tmp-")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = fsys.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp %s: %w", tmpName, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp %s -> %s: %w", tmpName, path, err)
	}
	return nil
}

// ReadPlan loads an artifact written by WritePlan.
func ReadPlan(fsys billy.Filesystem, path string) (reconcile.Plan, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return reconcile.Plan{}, fmt.Errorf("open plan: %w", err)
	}
	defer func() { _ = f.Close() }()
	var plan reconcile.Plan
	if err := json.NewDecoder(f).Decode(&plan); err != nil {
		return reconcile.Plan{}, fmt.Errorf("decode plan %s: %w", path, err)
	}
	return plan, nil
}

// Summary prints a console report. Plan entries are listed in sorted order.
func Summary(w io.Writer, res engine.Result) error {
	p := &printer{w: w}
	p.printf("mode: %s\n", res.Mode)
	p.printf("unreachable: %d\n", res.Plan.Len())
	for _, path := range res.Plan.Paths() {
		p.printf("  %s\n", path)
	}
	switch res.Mode {
	case engine.ModeAutoDelete:
		p.printf("deleted: %d\n", len(res.Deleted))
		p.printf("pruned: %d\n", len(res.Pruned))
		for _, d := range res.Pruned {
			p.printf("  %s%c\n", d, os.PathSeparator)
		}
	case engine.ModeDelegate:
		if res.HandlerInvoked {
			p.printf("handler: invoked\n")
		}
	case engine.ModeReportOnly:
	}
	for _, warn := range res.Warnings {
		p.printf("warning: %v\n", warn)
	}
	for _, e := range res.Errors {
		p.printf("error: %v\n", e)
	}
	return p.err
}

// JSON writes the whole result as one JSON document.
func JSON(w io.Writer, res engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

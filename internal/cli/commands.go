package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/yegor-usoltsev/orphanctl/internal/cleanup"
	"github.com/yegor-usoltsev/orphanctl/internal/config"
	"github.com/yegor-usoltsev/orphanctl/internal/engine"
	"github.com/yegor-usoltsev/orphanctl/internal/handler"
	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
	"github.com/yegor-usoltsev/orphanctl/internal/reachable"
	"github.com/yegor-usoltsev/orphanctl/internal/reconcile"
	"github.com/yegor-usoltsev/orphanctl/internal/report"
	"github.com/yegor-usoltsev/orphanctl/internal/rules"
	"github.com/yegor-usoltsev/orphanctl/internal/scaffold"
)

// errRunIncomplete means the run finished but some paths failed; the details
// are already in the summary.
var errRunIncomplete = errors.New("run finished with errors")

var errNoPlanPath = errors.New("output_logs is disabled; pass --plan")

type initCmd struct {
	Dir        string   `name:"dir" default:"." help:"Directory to write the config into."`
	Roots      []string `name:"root" help:"Root to clean (repeatable, default ./src)."`
	AutoDelete bool     `name:"auto-delete" help:"Enable auto_delete in the generated config."`
	Handler    bool     `name:"handler" help:"Also write a review handler script and use it."`
}

func (c *initCmd) Run(ctx context.Context, e *env) error {
	path, err := scaffold.InitConfig(ctx, scaffold.InitOptions{Dir: c.Dir, Roots: c.Roots, AutoDelete: c.AutoDelete, Handler: c.Handler})
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	e.log.Infof("config initialized: %s", path)
	return nil
}

type validateCmd struct{}

func (c *validateCmd) Run(ctx context.Context, e *env) error {
	f, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(ctx, f); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	e.log.Infof("config ok: %s", f.Path)
	return nil
}

type runFlags struct {
	Reachable string   `name:"reachable" short:"r" required:"" env:"ORPHANCTL_REACHABLE" help:"File listing reachable paths: JSON array or one per line, '-' for stdin."`
	Roots     []string `name:"root" help:"Override the configured roots (repeatable)."`
	Format    string   `name:"format" default:"text" enum:"text,json" help:"Output format (${enum})."`
	Parallel  int      `name:"parallel" default:"0" help:"Roots walked concurrently (0 uses the config value)."`
}

type planCmd struct {
	runFlags
}

func (c *planCmd) Run(ctx context.Context, e *env) error {
	return runCycle(ctx, e, c.runFlags, func(in *engine.Input) {
		in.Mode = engine.ModeReportOnly
		in.Handler = nil
	})
}

type cleanCmd struct {
	runFlags
	Mode   string `name:"mode" help:"Override the configured mode: report, delete or delegate."`
	DryRun bool   `name:"dry-run" help:"Log deletions, prunes and handler calls without making them."`
}

func (c *cleanCmd) Run(ctx context.Context, e *env) error {
	var override *engine.Mode
	if c.Mode != "" {
		m, err := engine.ParseMode(c.Mode)
		if err != nil {
			return fmt.Errorf("mode: %w", err)
		}
		override = &m
	}
	return runCycle(ctx, e, c.runFlags, func(in *engine.Input) {
		if override != nil {
			in.Mode = *override
			if in.Mode != engine.ModeDelegate {
				in.Handler = nil
			}
		}
		in.DryRun = c.DryRun
	})
}

type applyCmd struct {
	Plan   string `name:"plan" help:"Plan artifact to apply (default: the configured output_logs_path)."`
	DryRun bool   `name:"dry-run" help:"Log deletions and prunes without making changes."`
}

// Run deletes the files listed in a previously written plan, limited to the
// configured roots and minus anything the keep rules protect, then prunes the
// roots.
func (c *applyCmd) Run(ctx context.Context, e *env) error {
	f, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	roots, err := f.Roots()
	if err != nil {
		return fmt.Errorf("roots: %w", err)
	}
	path := c.Plan
	if path == "" {
		if path, err = f.OutputLogsPath(); err != nil {
			return fmt.Errorf("output_logs_path: %w", err)
		}
		if path == "" {
			return errNoPlanPath
		}
	}
	if path, err = pathnorm.Normalize(path); err != nil {
		return fmt.Errorf("plan path: %w", err)
	}

	fsys := osfs.New("/")
	stored, err := report.ReadPlan(fsys, path)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}
	for i, r := range roots {
		if roots[i], err = pathnorm.Normalize(r); err != nil {
			return fmt.Errorf("root %q: %w", r, err)
		}
	}

	// The artifact may be stale or hand-edited; keep rules still win.
	keep, dropped := rules.Compile(f.Config.Keep)
	for _, err := range dropped {
		e.log.Debugf("config: keep: dropped %v", err)
	}
	var invalid issue.Issues
	normalized := make([]string, 0, stored.Len())
	for _, p := range stored.Paths() {
		n, err := pathnorm.Normalize(p)
		if err != nil {
			invalid = append(invalid, issue.New(issue.KindInvalidPath, p, err))
			continue
		}
		normalized = append(normalized, n)
	}
	plan, kept := reconcile.NewPlan(normalized...).Without(keep)
	for _, p := range kept {
		e.log.Infof("apply: %s: matches keep, skipped", p)
	}

	del := cleanup.Delete(ctx, fsys, plan.Paths(), cleanup.DeleteOptions{Roots: roots, DryRun: c.DryRun, Logger: e.log})
	failed := append(invalid, del.Issues...)
	var pruned []string
	for _, r := range roots {
		pr := cleanup.Prune(ctx, fsys, r, cleanup.PruneOptions{Preserve: roots, Gone: del.Deleted, DryRun: c.DryRun, Logger: e.log})
		pruned = append(pruned, pr.Removed...)
		failed = append(failed, pr.Issues...)
	}

	res := engine.Result{Mode: engine.ModeAutoDelete, Plan: plan, Deleted: del.Deleted, Pruned: pruned, Errors: failed.Sorted()}
	if err := report.Summary(e.stdout, res); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if !res.OK() {
		return errRunIncomplete
	}
	return nil
}

type pruneCmd struct {
	DryRun bool     `name:"dry-run" help:"Log removals without making changes."`
	Roots  []string `arg:"" optional:"" name:"root" help:"Roots to prune (default: configured roots)."`
}

func (c *pruneCmd) Run(ctx context.Context, e *env) error {
	roots := c.Roots
	if len(roots) == 0 {
		f, err := e.loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if roots, err = f.Roots(); err != nil {
			return fmt.Errorf("roots: %w", err)
		}
	}
	normalized := make([]string, 0, len(roots))
	for _, r := range roots {
		n, err := pathnorm.Normalize(r)
		if err != nil {
			return fmt.Errorf("root %q: %w", r, err)
		}
		normalized = append(normalized, n)
	}

	fsys := osfs.New("/")
	var failed issue.Issues
	for _, r := range normalized {
		res := cleanup.Prune(ctx, fsys, r, cleanup.PruneOptions{Preserve: normalized, DryRun: c.DryRun, Logger: e.log})
		for _, d := range res.Removed {
			_, _ = fmt.Fprintln(e.stdout, d)
		}
		failed = append(failed, res.Issues...)
	}
	for _, is := range failed.Sorted() {
		e.log.Errorf("prune: %v", is)
	}
	if len(failed) > 0 {
		return errRunIncomplete
	}
	return nil
}

func runCycle(ctx context.Context, e *env, flags runFlags, adjust func(*engine.Input)) error {
	f, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	paths, err := reachable.ReadFile(flags.Reachable)
	if err != nil {
		return fmt.Errorf("reachable: %w", err)
	}

	in, err := buildInput(f, flags, e)
	if err != nil {
		return err
	}
	in.Reachable = paths
	adjust(&in)

	parallel := flags.Parallel
	if parallel == 0 {
		parallel = f.Config.Parallel
	}
	fsys := osfs.New("/")
	res, err := engine.Run(ctx, fsys, in, engine.Options{Parallel: parallel, Logger: e.log})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logPath, err := f.OutputLogsPath()
	if err != nil {
		return fmt.Errorf("output_logs_path: %w", err)
	}
	if logPath != "" {
		if err := report.WritePlan(fsys, logPath, res.Plan); err != nil {
			return fmt.Errorf("write plan log: %w", err)
		}
		e.log.Debugf("plan: written to %s", logPath)
	}

	switch flags.Format {
	case "json":
		err = report.JSON(e.stdout, res)
	default:
		err = report.Summary(e.stdout, res)
	}
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if !res.OK() {
		return errRunIncomplete
	}
	return nil
}

func buildInput(f config.File, flags runFlags, e *env) (engine.Input, error) {
	roots := flags.Roots
	if len(roots) == 0 {
		var err error
		if roots, err = f.Roots(); err != nil {
			return engine.Input{}, fmt.Errorf("roots: %w", err)
		}
	}
	in := engine.Input{
		Roots:              roots,
		Keep:               f.Config.Keep,
		IgnoreAsDependency: f.Config.IgnoreAsDependency,
		Mode:               f.Mode(),
	}
	if len(f.Config.Handler) > 0 {
		h, err := handler.Command(f.Config.Handler, handler.Options{Dir: f.Dir, Stdout: e.stdout, Logger: e.log})
		if err != nil {
			return engine.Input{}, fmt.Errorf("handler: %w", err)
		}
		in.Handler = h
	}
	return in, nil
}

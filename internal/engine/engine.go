// Package engine runs one reconciliation and cleanup cycle: inventory the
// roots, subtract the reachable set, then report, delegate or delete.
//
// Each stage receives the RunContext produced by the previous one and returns
// a new value; nothing is shared between runs.
package engine

import (
	"context"
	"fmt"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/cleanup"
	"github.com/yegor-usoltsev/orphanctl/internal/inventory"
	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
	"github.com/yegor-usoltsev/orphanctl/internal/reconcile"
	"github.com/yegor-usoltsev/orphanctl/internal/rules"
)

// Handler receives the plan in delegate mode instead of files being deleted.
type Handler func(ctx context.Context, plan reconcile.Plan) error

type Input struct {
	Roots []string
	// Reachable is the set of paths the build used. nil means the host
	// supplied nothing, which is fatal; an empty slice is valid.
	Reachable          []string
	Keep               []rules.Spec
	IgnoreAsDependency []rules.Spec
	Mode               Mode
	// Handler, when set, wins over Mode: the plan goes to it and nothing is
	// deleted or pruned.
	Handler Handler
	// DryRun logs deletions, prunes and handler calls instead of making them.
	DryRun bool
}

type Options struct {
	Parallel int
	MaxDepth int
	Logger   logrus.FieldLogger
}

// RunContext carries the inputs and intermediate values of a single run.
type RunContext struct {
	Roots              []string
	Reachable          []string
	Keep               rules.Set
	IgnoreAsDependency rules.Set
	Inventory          []string
	Plan               reconcile.Plan
}

func (rc RunContext) withInventory(files []string) RunContext {
	rc.Inventory = files
	return rc
}

func (rc RunContext) withPlan(p reconcile.Plan) RunContext {
	rc.Plan = p
	return rc
}

type Result struct {
	Mode           Mode           `json:"mode"`
	Plan           reconcile.Plan `json:"plan"`
	HandlerInvoked bool           `json:"handler_invoked,omitempty"`
	Deleted        []string       `json:"deleted"`
	Pruned         []string       `json:"pruned"`
	Warnings       issue.Issues   `json:"warnings"`
	Errors         issue.Issues   `json:"errors"`
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// Run performs one cycle. It returns an error only when the roots or the
// reachable set cannot be determined, or when ctx is cancelled; per-path
// failures are reported in Result.Errors.
func Run(ctx context.Context, fsys billy.Filesystem, in Input, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run: %w", err)
	}
	if in.Reachable == nil {
		return Result{}, ErrNoReachable
	}
	if in.Handler == nil && in.Mode == ModeDelegate {
		return Result{}, ErrNoHandler
	}

	res := Result{Mode: in.Mode, Deleted: []string{}, Pruned: []string{}}
	if in.Handler != nil {
		res.Mode = ModeDelegate
	}

	rc, errs := prepare(in, log)
	res.Errors = append(res.Errors, errs...)
	if len(rc.Roots) == 0 {
		return res, ErrNoRoots
	}

	inv := inventory.Collect(ctx, fsys, rc.Roots, inventory.Options{Parallel: opts.Parallel, MaxDepth: opts.MaxDepth, Logger: log})
	rc = rc.withInventory(inv.Files)
	res.Warnings = append(res.Warnings, inv.Warnings...)
	res.Errors = append(res.Errors, inv.Issues...)
	for _, w := range inv.Warnings {
		log.Warnf("inventory: %v", w)
	}

	rc = rc.withPlan(reconcile.Reconcile(rc.Inventory, rc.Reachable, rc.Keep, rc.IgnoreAsDependency))
	res.Plan = rc.Plan
	log.Infof("plan: %d of %d files unreachable", rc.Plan.Len(), len(rc.Inventory))

	if err := ctx.Err(); err != nil {
		return finish(res), fmt.Errorf("run: %w", err)
	}

	switch res.Mode {
	case ModeDelegate:
		if in.DryRun {
			log.Infof("dry-run: hand %d paths to handler", rc.Plan.Len())
			break
		}
		res.HandlerInvoked = true
		if err := in.Handler(ctx, rc.Plan); err != nil {
			res.Errors = append(res.Errors, issue.New(issue.KindHandler, "", err))
		}
	case ModeAutoDelete:
		res = execute(ctx, fsys, rc, in.DryRun, opts, log, res)
	case ModeReportOnly:
	default:
		return finish(res), fmt.Errorf("%w: %v", ErrUnknownMode, res.Mode)
	}

	if err := ctx.Err(); err != nil {
		return finish(res), fmt.Errorf("run: %w", err)
	}
	return finish(res), nil
}

// prepare normalizes roots and reachable paths and compiles the rules.
// Unusable rules are dropped and only logged at debug level.
func prepare(in Input, log logrus.FieldLogger) (RunContext, issue.Issues) {
	var errs issue.Issues
	var rc RunContext

	seen := make(map[string]struct{}, len(in.Roots))
	for _, r := range in.Roots {
		n, err := pathnorm.Normalize(r)
		if err != nil {
			errs = append(errs, issue.New(issue.KindInvalidPath, r, err))
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		rc.Roots = append(rc.Roots, n)
	}

	rc.Reachable = make([]string, 0, len(in.Reachable))
	for _, p := range in.Reachable {
		n, err := pathnorm.Normalize(p)
		if err != nil {
			errs = append(errs, issue.New(issue.KindInvalidPath, p, err))
			continue
		}
		rc.Reachable = append(rc.Reachable, n)
	}

	var dropped []error
	rc.Keep, dropped = rules.Compile(in.Keep)
	for _, err := range dropped {
		log.Debugf("config: keep: dropped %v", err)
	}
	rc.IgnoreAsDependency, dropped = rules.Compile(in.IgnoreAsDependency)
	for _, err := range dropped {
		log.Debugf("config: ignore_as_dependency: dropped %v", err)
	}
	return rc, errs
}

func execute(ctx context.Context, fsys billy.Filesystem, rc RunContext, dryRun bool, opts Options, log logrus.FieldLogger, res Result) Result {
	del := cleanup.Delete(ctx, fsys, rc.Plan.Paths(), cleanup.DeleteOptions{Roots: rc.Roots, DryRun: dryRun, Logger: log})
	res.Deleted = append(res.Deleted, del.Deleted...)
	res.Errors = append(res.Errors, del.Issues...)
	log.Infof("delete: %d removed, %d failed", len(del.Deleted), len(del.Issues))

	for _, root := range rc.Roots {
		pr := cleanup.Prune(ctx, fsys, root, cleanup.PruneOptions{Preserve: rc.Roots, Gone: del.Deleted, DryRun: dryRun, MaxDepth: opts.MaxDepth, Logger: log})
		res.Pruned = append(res.Pruned, pr.Removed...)
		res.Errors = append(res.Errors, pr.Issues...)
	}
	log.Infof("prune: %d directories removed", len(res.Pruned))
	return res
}

func finish(res Result) Result {
	res.Warnings = res.Warnings.Sorted()
	res.Errors = res.Errors.Sorted()
	return res
}

// Package cleanup removes deletion candidates and prunes the directories they
// leave empty. Every failure is scoped to a single path and collected; neither
// operation stops early.
package cleanup

import (
	"context"
	"fmt"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
)

type DeleteOptions struct {
	// Roots bounds what may be deleted; a path outside every root is refused.
	Roots  []string
	DryRun bool
	Logger logrus.FieldLogger
}

type DeleteResult struct {
	// Deleted lists removed files, or the files that would be removed in
	// dry-run mode.
	Deleted []string
	Issues  issue.Issues
}

// Delete removes each path independently. Paths must be normalized. Only
// non-directory entries inside opts.Roots are removed, and never through a
// symlinked directory, since that would remove the link target's file.
func Delete(ctx context.Context, fsys billy.Filesystem, paths []string, opts DeleteOptions) DeleteResult {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	resolvedRoots := make(map[string]string, len(opts.Roots))

	var res DeleteResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindDeletion, p, err))
			continue
		}
		if err := checkDeletable(fsys, p, opts.Roots, resolvedRoots); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindDeletion, p, err))
			continue
		}
		if opts.DryRun {
			log.Infof("dry-run: remove file %s", p)
			res.Deleted = append(res.Deleted, p)
			continue
		}
		if err := fsys.Remove(p); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindDeletion, p, fmt.Errorf("remove: %w", err)))
			continue
		}
		log.Debugf("delete: %s", p)
		res.Deleted = append(res.Deleted, p)
	}
	return res
}

func checkDeletable(fsys billy.Filesystem, p string, roots []string, resolvedRoots map[string]string) error {
	root, ok := owningRoot(roots, p)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutsideRoots, p)
	}
	info, err := fsys.Lstat(p)
	if err != nil {
		return fmt.Errorf("lstat: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, p)
	}

	rootReal, ok := resolvedRoots[root]
	if !ok {
		rootReal, err = pathnorm.Resolve(fsys, root)
		if err != nil {
			return fmt.Errorf("resolve root %s: %w", root, err)
		}
		resolvedRoots[root] = rootReal
	}
	parent := filepath.Dir(p)
	rel, err := filepath.Rel(root, parent)
	if err != nil {
		return fmt.Errorf("rel %s: %w", parent, err)
	}
	parentReal, err := pathnorm.Resolve(fsys, parent)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", parent, err)
	}
	if parentReal != filepath.Join(rootReal, rel) {
		return fmt.Errorf("%w: %s -> %s", ErrThroughSymlink, parent, parentReal)
	}
	return nil
}

// owningRoot returns the longest root containing p.
func owningRoot(roots []string, p string) (string, bool) {
	best := ""
	for _, r := range roots {
		if r == p {
			// A root is a directory, never a file candidate.
			continue
		}
		if pathnorm.Within(r, p) && len(r) > len(best) {
			best = r
		}
	}
	return best, best != ""
}

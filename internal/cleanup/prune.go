package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
)

const DefaultMaxDepth = 1024

type PruneOptions struct {
	// Preserve lists directories that are never removed, such as other
	// configured roots nested under this one.
	Preserve []string
	// Gone lists paths to count as already removed, such as the files a
	// dry-run deletion would have removed.
	Gone     []string
	DryRun   bool
	MaxDepth int
	Logger   logrus.FieldLogger
}

type PruneResult struct {
	// Removed is in removal order: children before their parents.
	Removed []string
	Issues  issue.Issues
}

type pruneFrame struct {
	path     string
	depth    int
	expanded bool
}

// Prune removes every directory beneath root that is empty once its own
// subdirectories have been pruned. The root itself is kept, and a missing root
// is not an error. Symlinks count as entries and are never followed.
func Prune(ctx context.Context, fsys billy.Filesystem, root string, opts PruneOptions) PruneResult {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}

	var res PruneResult
	n, err := pathnorm.Normalize(root)
	if err != nil {
		res.Issues = append(res.Issues, issue.New(issue.KindInvalidPath, root, err))
		return res
	}
	root = n
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res
		}
		res.Issues = append(res.Issues, issue.New(issue.KindPrune, root, fmt.Errorf("stat: %w", err)))
		return res
	}
	if !info.IsDir() {
		res.Issues = append(res.Issues, issue.New(issue.KindPrune, root, errNotDir))
		return res
	}

	preserve := make(map[string]struct{}, len(opts.Preserve))
	for _, p := range opts.Preserve {
		preserve[p] = struct{}{}
	}

	// In dry-run nothing disappears, so parents must discount the entries
	// that would have been removed.
	gone := make(map[string]struct{}, len(opts.Gone))
	for _, p := range opts.Gone {
		gone[p] = struct{}{}
	}

	stack := []pruneFrame{{path: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindPrune, root, err))
			return res
		}
		top := len(stack) - 1
		f := stack[top]

		if !f.expanded {
			stack[top].expanded = true
			entries, err := fsys.ReadDir(f.path)
			if err != nil {
				res.Issues = append(res.Issues, issue.New(issue.KindPrune, f.path, fmt.Errorf("read dir: %w", err)))
				stack = stack[:top]
				continue
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				child := filepath.Join(f.path, e.Name())
				if f.depth+1 > opts.MaxDepth {
					res.Issues = append(res.Issues, issue.New(issue.KindPrune, child, errTooDeep))
					continue
				}
				stack = append(stack, pruneFrame{path: child, depth: f.depth + 1})
			}
			continue
		}

		stack = stack[:top]
		if f.path == root {
			continue
		}
		if _, ok := preserve[f.path]; ok {
			continue
		}
		// Re-read: children may have been removed since the first read.
		entries, err := fsys.ReadDir(f.path)
		if err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindPrune, f.path, fmt.Errorf("read dir: %w", err)))
			continue
		}
		if remaining(f.path, entries, gone) > 0 {
			continue
		}
		if opts.DryRun {
			log.Infof("dry-run: remove dir %s", f.path)
			gone[f.path] = struct{}{}
			res.Removed = append(res.Removed, f.path)
			continue
		}
		if err := fsys.Remove(f.path); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindPrune, f.path, fmt.Errorf("remove: %w", err)))
			continue
		}
		log.Debugf("prune: %s", f.path)
		res.Removed = append(res.Removed, f.path)
	}
	return res
}

func remaining(dir string, entries []os.FileInfo, gone map[string]struct{}) int {
	n := 0
	for _, e := range entries {
		if _, ok := gone[filepath.Join(dir, e.Name())]; ok {
			continue
		}
		n++
	}
	return n
}

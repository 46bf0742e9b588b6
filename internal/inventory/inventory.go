// Package inventory lists every regular file beneath a set of roots.
//
// Symlink policy: a symlink to a regular file is listed under the link's own
// path, and removing it removes only the link. A symlink to a directory is an
// entry, not a subtree: its files either live under a root already, where they
// are listed at their real path, or outside every root, where nothing may be
// deleted. Walks therefore cannot loop. Dangling links and non-regular files
// are ignored.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	billy "github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/pathnorm"
)

const DefaultMaxDepth = 1024

type Options struct {
	// Parallel bounds the number of roots walked at once.
	Parallel int
	MaxDepth int
	Logger   logrus.FieldLogger
}

type Result struct {
	// Files is sorted and free of duplicates.
	Files    []string
	Warnings issue.Issues
	Issues   issue.Issues
}

// Collect walks each root independently and unions the files found. Failures
// degrade coverage but never abort the collection.
func Collect(ctx context.Context, fsys billy.Filesystem, roots []string, opts Options) Result {
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	var res Result
	uniq := make([]string, 0, len(roots))
	seen := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		n, err := pathnorm.Normalize(r)
		if err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindInvalidPath, r, err))
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)
	if len(uniq) == 0 {
		return res
	}

	results := make([]Result, len(uniq))
	var wg sync.WaitGroup
	workCh := make(chan int)

	worker := func() {
		defer wg.Done()
		for i := range workCh {
			results[i] = walkRoot(ctx, fsys, uniq[i], opts.MaxDepth)
			log.Debugf("inventory: %s: %d files", uniq[i], len(results[i].Files))
		}
	}
	workers := min(opts.Parallel, len(uniq))
	wg.Add(workers)
	for range workers {
		go worker()
	}
	for i := range uniq {
		if ctx.Err() != nil {
			break
		}
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	files := make(map[string]struct{})
	for _, r := range results {
		for _, f := range r.Files {
			files[f] = struct{}{}
		}
		res.Warnings = append(res.Warnings, r.Warnings...)
		res.Issues = append(res.Issues, r.Issues...)
	}
	res.Files = make([]string, 0, len(files))
	for f := range files {
		res.Files = append(res.Files, f)
	}
	sort.Strings(res.Files)
	return res
}

type frame struct {
	path  string
	depth int
}

func walkRoot(ctx context.Context, fsys billy.Filesystem, root string, maxDepth int, log logrus.FieldLogger) Result {
	var res Result

	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Warnings = append(res.Warnings, issue.New(issue.KindTraversal, root, ErrRootMissing))
			return res
		}
		res.Issues = append(res.Issues, issue.New(issue.KindTraversal, root, fmt.Errorf("stat root: %w", err)))
		return res
	}
	if !info.IsDir() {
		res.Issues = append(res.Issues, issue.New(issue.KindTraversal, root, errRootNotDir))
		return res
	}

	stack := []frame{{path: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindTraversal, root, err))
			return res
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fsys.ReadDir(f.path)
		if err != nil {
			res.Issues = append(res.Issues, issue.New(issue.KindTraversal, f.path, fmt.Errorf("read dir: %w", err)))
			continue
		}
		for _, e := range entries {
			p := filepath.Join(f.path, e.Name())
			mode := e.Mode()
			switch {
			case mode.IsRegular():
				res.Files = append(res.Files, p)
			case mode.IsDir():
				if f.depth+1 > maxDepth {
					res.Issues = append(res.Issues, issue.New(issue.KindTraversal, p, errTooDeep))
					continue
				}
				stack = append(stack, frame{path: p, depth: f.depth + 1})
			case mode&os.ModeSymlink != 0:
				target, err := fsys.Stat(p)
				if err != nil {
					// Dangling or self-referencing link.
					continue
				}
				if target.Mode().IsRegular() {
					res.Files = append(res.Files, p)
					continue
				}
				if target.IsDir() {
					log.Debugf("inventory: %s: symlinked directory not descended", p)
				}
			}
		}
	}
	return res
}

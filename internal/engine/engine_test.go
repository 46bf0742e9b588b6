package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegor-usoltsev/orphanctl/internal/issue"
	"github.com/yegor-usoltsev/orphanctl/internal/reconcile"
	"github.com/yegor-usoltsev/orphanctl/internal/rules"
)

func quietOptions() Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Options{Logger: l}
}

func project(t *testing.T, files []string, dirs []string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	src := filepath.Join(root, "src")
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(src, filepath.FromSlash(d)), 0o755))
	}
	for _, f := range files {
		p := filepath.Join(src, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
	return src
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

func TestRun_AutoDeleteScenario(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "b.js", "utils/c.js"}, []string{"empty"})
	in := Input{
		Roots:     []string{src},
		Reachable: []string{filepath.Join(src, "a.js")},
		Keep:      []rules.Spec{rules.RegexSpec(`/utils/`)},
		Mode:      ModeAutoDelete,
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(src, "b.js")}, res.Plan.Paths())
	assert.Equal(t, []string{filepath.Join(src, "b.js")}, res.Deleted)
	assert.Equal(t, []string{filepath.Join(src, "empty")}, res.Pruned)
	assert.True(t, res.OK())
	assert.True(t, exists(filepath.Join(src, "a.js")))
	assert.True(t, exists(filepath.Join(src, "utils", "c.js")))
	assert.False(t, exists(filepath.Join(src, "b.js")))
	assert.False(t, exists(filepath.Join(src, "empty")))
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "b.js", "x/y/z.js", "utils/c.js"}, []string{"empty/deeper"})
	in := Input{
		Roots:     []string{src},
		Reachable: []string{filepath.Join(src, "a.js")},
		Keep:      []rules.Spec{rules.RegexSpec(`/utils/`)},
		Mode:      ModeAutoDelete,
	}
	fsys := osfs.New("/")

	first, err := Run(context.Background(), fsys, in, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Plan.Len())
	assert.NotEmpty(t, first.Pruned)

	second, err := Run(context.Background(), fsys, in, quietOptions())
	require.NoError(t, err)
	assert.True(t, second.Plan.Empty())
	assert.Empty(t, second.Deleted)
	assert.Empty(t, second.Pruned)
	assert.Empty(t, second.Errors)
}

func TestRun_DirectorySymlinksDoNotProduceCandidates(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"real/x.js"}, nil)
	outside := filepath.Join(filepath.Dir(src), "outside")
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "y.js"), []byte("y"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(src, "real"), filepath.Join(src, "link")))
	require.NoError(t, os.Symlink(outside, filepath.Join(src, "vendor")))
	in := Input{Roots: []string{src}, Reachable: []string{filepath.Join(src, "real", "x.js")}, Mode: ModeAutoDelete}

	for range 2 {
		res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
		require.NoError(t, err)
		assert.True(t, res.Plan.Empty(), "plan: %v", res.Plan.Paths())
		assert.Empty(t, res.Deleted)
		assert.True(t, res.OK(), "errors: %v", res.Errors)
	}
	assert.True(t, exists(filepath.Join(outside, "y.js")))
	assert.True(t, exists(filepath.Join(src, "link")))
}

func TestRun_IgnoreAsDependencyDemotes(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"dep.js"}, nil)
	in := Input{
		Roots:              []string{src},
		Reachable:          []string{filepath.Join(src, "dep.js")},
		IgnoreAsDependency: []rules.Spec{rules.RegexSpec(`dep\.js`)},
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(src, "dep.js")}, res.Plan.Paths())
	assert.Equal(t, ModeReportOnly, res.Mode)
	assert.Empty(t, res.Deleted)
	assert.True(t, exists(filepath.Join(src, "dep.js")))
}

func TestRun_HandlerSuppressesDeletion(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "b.js"}, []string{"empty"})
	var calls int
	var got reconcile.Plan
	in := Input{
		Roots:     []string{src},
		Reachable: []string{filepath.Join(src, "a.js")},
		Mode:      ModeAutoDelete,
		Handler: func(_ context.Context, plan reconcile.Plan) error {
			calls++
			got = plan
			return nil
		},
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{filepath.Join(src, "b.js")}, got.Paths())
	assert.Equal(t, ModeDelegate, res.Mode)
	assert.True(t, res.HandlerInvoked)
	assert.Empty(t, res.Deleted)
	assert.Empty(t, res.Pruned)
	assert.True(t, exists(filepath.Join(src, "b.js")))
	assert.True(t, exists(filepath.Join(src, "empty")))
}

func TestRun_DryRunSkipsHandler(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "b.js"}, nil)
	var calls int
	in := Input{
		Roots:     []string{src},
		Reachable: []string{filepath.Join(src, "a.js")},
		Mode:      ModeDelegate,
		DryRun:    true,
		Handler: func(context.Context, reconcile.Plan) error {
			calls++
			return nil
		},
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Zero(t, calls)
	assert.False(t, res.HandlerInvoked)
	assert.Equal(t, []string{filepath.Join(src, "b.js")}, res.Plan.Paths())
	assert.True(t, res.OK())
}

func TestRun_HandlerErrorIsReported(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js"}, nil)
	boom := errors.New("boom")
	in := Input{
		Roots:     []string{src},
		Reachable: []string{},
		Handler:   func(context.Context, reconcile.Plan) error { return boom },
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], issue.ErrHandler)
	assert.ErrorIs(t, res.Errors[0], boom)
}

func TestRun_ReportOnlyTouchesNothing(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "b.js"}, []string{"empty"})
	in := Input{Roots: []string{src}, Reachable: []string{}}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Plan.Len())
	assert.Empty(t, res.Deleted)
	assert.True(t, exists(filepath.Join(src, "a.js")))
	assert.True(t, exists(filepath.Join(src, "empty")))
}

func TestRun_DryRunDeletesNothing(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "old/b.js"}, nil)
	in := Input{Roots: []string{src}, Reachable: []string{filepath.Join(src, "a.js")}, Mode: ModeAutoDelete, DryRun: true}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(src, "old", "b.js")}, res.Deleted)
	assert.Equal(t, []string{filepath.Join(src, "old")}, res.Pruned)
	assert.True(t, exists(filepath.Join(src, "old", "b.js")))

	in.DryRun = false
	applied, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, res.Deleted, applied.Deleted)
	assert.Equal(t, res.Pruned, applied.Pruned)
}

func TestRun_InvalidRulesAreDropped(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js", "keep.js"}, nil)
	in := Input{
		Roots:     []string{src},
		Reachable: []string{},
		Keep:      []rules.Spec{rules.RegexSpec(`(`), rules.LiteralSpec("keep")},
	}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(src, "a.js")}, res.Plan.Paths())
	assert.Empty(t, res.Errors)
}

func TestRun_MissingRootAndInvalidReachable(t *testing.T) {
	t.Parallel()

	src := project(t, []string{"a.js"}, nil)
	missing := filepath.Join(filepath.Dir(src), "missing")
	in := Input{Roots: []string{src, missing, src}, Reachable: []string{"", filepath.Join(src, "a.js")}}

	res, err := Run(context.Background(), osfs.New("/"), in, quietOptions())
	require.NoError(t, err)

	assert.True(t, res.Plan.Empty())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, missing, res.Warnings[0].Path)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, issue.KindInvalidPath, res.Errors[0].Kind)
}

func TestRun_FatalInputs(t *testing.T) {
	t.Parallel()

	fsys := osfs.New("/")
	ctx := context.Background()

	_, err := Run(ctx, fsys, Input{Roots: []string{"/src"}}, quietOptions())
	assert.ErrorIs(t, err, ErrNoReachable)

	_, err = Run(ctx, fsys, Input{Reachable: []string{}}, quietOptions())
	assert.ErrorIs(t, err, ErrNoRoots)

	_, err = Run(ctx, fsys, Input{Roots: []string{"  "}, Reachable: []string{}}, quietOptions())
	assert.ErrorIs(t, err, ErrNoRoots)

	_, err = Run(ctx, fsys, Input{Roots: []string{"/src"}, Reachable: []string{}, Mode: ModeDelegate}, quietOptions())
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"": ModeReportOnly, "report": ModeReportOnly, "Delete": ModeAutoDelete, "delegate": ModeDelegate} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("nuke")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

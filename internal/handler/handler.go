// Package handler delegates a deletion plan to an external command.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yegor-usoltsev/orphanctl/internal/engine"
	"github.com/yegor-usoltsev/orphanctl/internal/reconcile"
)

var errEmptyCommand = errors.New("handler command is empty")

type ExecError struct {
	Path   string
	Code   int
	Stderr string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s: exit %d", e.Path, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

type Options struct {
	Dir    string
	Stdout io.Writer
	Logger logrus.FieldLogger
}

// Command returns a handler that runs args[0] with the remaining arguments,
// feeding the plan as a JSON array on stdin. ORPHANCTL_PLAN_COUNT carries the
// number of candidates.
func Command(args []string, opts Options) (engine.Handler, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, errEmptyCommand
	}
	argv := append([]string(nil), args...)
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(ctx context.Context, plan reconcile.Plan) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("handler: %w", err)
		}
		input, err := json.Marshal(plan)
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = opts.Dir
		cmd.Env = append(os.Environ(), "ORPHANCTL_PLAN_COUNT="+strconv.Itoa(plan.Len()))
		cmd.Stdin = bytes.NewReader(input)
		cmd.Stdout = opts.Stdout
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		log.Debugf("handler: running %s with %d paths", argv[0], plan.Len())
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &ExecError{Path: argv[0], Code: exitErr.ExitCode(), Stderr: trimOneLine(stderr.String())}
			}
			return fmt.Errorf("run %s: %w", argv[0], err)
		}
		log.Debugf("handler: %s: ok", argv[0])
		return nil
	}, nil
}

func trimOneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

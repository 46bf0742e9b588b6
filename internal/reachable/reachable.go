// Package reachable reads the set of paths a build reports as used.
//
// Two formats are accepted: a JSON array of strings, or one path per line with
// blank lines and lines starting with '#' skipped.
package reachable

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

var errNotStrings = errors.New("expected a JSON array of strings")

func ReadFile(path string) ([]string, error) {
	if path == Stdin {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reachable set: %w", err)
	}
	defer func() { _ = f.Close() }()
	paths, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return paths, nil
}

// Read never returns a nil slice on success, so an empty input still counts
// as a supplied (empty) set.
func Read(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read reachable set: %w", err)
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return readJSON(trimmed)
	}
	return readLines(b)
}

func readJSON(b []byte) ([]string, error) {
	var paths []string
	if err := json.Unmarshal(b, &paths); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, fmt.Errorf("%w: %v", errNotStrings, err)
		}
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

func readLines(b []byte) ([]string, error) {
	paths := []string{}
	s := bufio.NewScanner(bytes.NewReader(b))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return paths, nil
}

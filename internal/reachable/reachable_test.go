package reachable

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead_Lines(t *testing.T) {
	t.Parallel()

	got, err := Read(strings.NewReader("# build 42\n/src/a.js\n\n  /src/b.js  \r\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"/src/a.js", "/src/b.js"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRead_JSON(t *testing.T) {
	t.Parallel()

	got, err := Read(strings.NewReader(` ["/src/a.js", "/src/b.js"] `))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"/src/a.js", "/src/b.js"}) {
		t.Fatalf("unexpected paths: %v", got)
	}

	if _, err := Read(strings.NewReader(`[1, 2]`)); err == nil {
		t.Fatalf("expected error for non-string array")
	}
	if _, err := Read(strings.NewReader(`[`)); err == nil {
		t.Fatalf("expected error for truncated json")
	}
}

func TestRead_EmptyIsSuppliedSet(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "\n# nothing\n", "[]"} {
		got, err := Read(strings.NewReader(in))
		if err != nil {
			t.Fatalf("Read(%q): %v", in, err)
		}
		if got == nil {
			t.Fatalf("Read(%q) returned nil slice", in)
		}
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "deps.txt")
	if err := os.WriteFile(p, []byte("/x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 1 || got[0] != "/x" {
		t.Fatalf("unexpected paths: %v", got)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

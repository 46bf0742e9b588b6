package scaffold

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yegor-usoltsev/orphanctl/internal/config"
	"github.com/yegor-usoltsev/orphanctl/internal/engine"
)

func TestInitConfig_WritesValidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := InitConfig(context.Background(), InitOptions{Dir: dir, Roots: []string{"./src", "./assets"}, AutoDelete: true})
	if err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if path != filepath.Join(dir, config.DefaultFile) {
		t.Fatalf("unexpected path: %s", path)
	}

	f, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := config.Validate(context.Background(), f); err != nil {
		t.Fatalf("generated config does not validate: %v", err)
	}
	roots, err := f.Roots()
	if err != nil {
		t.Fatalf("Roots: %v", err)
	}
	if len(roots) != 2 || roots[1] != filepath.Join(dir, "assets") {
		t.Fatalf("unexpected roots: %v", roots)
	}
	if f.Mode() != engine.ModeAutoDelete {
		t.Fatalf("expected auto delete, got %v", f.Mode())
	}
	if _, err := os.Stat(filepath.Join(dir, HandlerFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("handler script should not be written")
	}
}

func TestInitConfig_Handler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := InitConfig(context.Background(), InitOptions{Dir: dir, Handler: true})
	if err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(b), "handler: [\"./"+HandlerFile+"\"]") {
		t.Fatalf("config missing handler:\n%s", b)
	}
	info, err := os.Stat(filepath.Join(dir, HandlerFile))
	if err != nil {
		t.Fatalf("stat handler: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Fatalf("expected executable handler script")
	}
}

func TestInitConfig_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := InitConfig(context.Background(), InitOptions{Dir: dir}); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if _, err := InitConfig(context.Background(), InitOptions{Dir: dir}); !errors.Is(err, errConfigExists) {
		t.Fatalf("expected errConfigExists, got %v", err)
	}
}

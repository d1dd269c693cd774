package adapter

import (
	"path/filepath"
	"testing"

	m "sunset.dev/pkg/sunset/internal/model"
)

func TestLocalGoFileAdapter_Load(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	writeTestFile(t, path, "package main\n\nfunc main() {}\n")

	tree, err := adapter.Load(m.Path(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if tree.Gen != 0 {
		t.Fatalf("Load() generation = %d, want 0", tree.Gen)
	}
	if tree.Path != m.Path(path) {
		t.Fatalf("Load() path = %s, want %s", tree.Path, path)
	}
	if tree.File.Name.Name != "main" {
		t.Fatalf("Load() package = %s, want main", tree.File.Name.Name)
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := adapter.Load(m.Path(filepath.Join(root, "absent.go"))); err == nil {
			t.Fatalf("Load() expected error for missing file")
		}
	})
}

func TestLocalGoFileAdapter_Parse(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	tree, err := adapter.Parse("pkg/util_test.go", []byte("package util\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tree.Kind != m.KindTest {
		t.Fatalf("Parse() kind = %s, want test", tree.Kind)
	}

	t.Run("syntax error", func(t *testing.T) {
		if _, err := adapter.Parse("bad.go", []byte("package\n")); err == nil {
			t.Fatalf("Parse() expected error for invalid source")
		}
	})
}

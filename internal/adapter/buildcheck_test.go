package adapter

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestGoBuildVerifier_Verify(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go tool not available")
	}
	verifier := NewGoBuildVerifier()

	t.Run("clean module builds without output", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "go.mod"), "module example.com/clean\n\ngo 1.23\n")
		writeTestFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

		lines, err := verifier.Verify(context.Background(), root)
		if err != nil {
			t.Fatalf("Verify() error = %v, output:\n%v", err, lines)
		}
	})

	t.Run("broken module reports compiler lines", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "go.mod"), "module example.com/broken\n\ngo 1.23\n")
		writeTestFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc main() { undefinedCall() }\n")

		lines, err := verifier.Verify(context.Background(), root)
		if err == nil {
			t.Fatalf("Verify() expected build failure")
		}
		if len(lines) == 0 {
			t.Fatalf("Verify() returned no compiler output")
		}
	})
}

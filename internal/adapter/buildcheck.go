package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// BuildVerifier abstracts the post-rewrite compile check.
type BuildVerifier interface {
	// Verify builds the package tree under dir and returns the compiler
	// output split into lines. The error is non-nil when the build
	// failed; the lines are returned either way.
	Verify(ctx context.Context, dir string) ([]string, error)
}

// GoBuildVerifier provides a concrete BuildVerifier using the go tool.
type GoBuildVerifier struct {
	timeout time.Duration
}

// NewGoBuildVerifier constructs a GoBuildVerifier with a default 5m
// timeout.
func NewGoBuildVerifier() *GoBuildVerifier {
	return &GoBuildVerifier{
		timeout: 5 * time.Minute,
	}
}

// Verify runs 'go build ./...' in the given directory.
func (v *GoBuildVerifier) Verify(ctx context.Context, dir string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "./...")
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()

	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, err
}

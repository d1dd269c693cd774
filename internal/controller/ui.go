// Package controller provides output front ends for displaying
// migration progress and run reports.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "sunset.dev/pkg/sunset/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	// ModeRun is a full migration run that rewrites files.
	ModeRun StartMode = iota
	// ModePlan analyzes only; diffs and reports, no writes.
	ModePlan
)

// StartOption is a functional option for the Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode       StartMode
	totalFiles int
}

// WithRunMode sets the UI to full-run mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithPlanMode sets the UI to analysis-only mode.
func WithPlanMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModePlan
	}
}

// WithTotalFiles tells the UI how many files the run will process, so
// progress can be rendered.
func WithTotalFiles(n int) StartOption {
	return func(c *StartConfig) {
		c.totalFiles = n
	}
}

// UI defines the interface for displaying migration progress and
// results. Implementations can use different output methods (simple
// text, TUI).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayCatalogInfo(ctx context.Context, entries int, namespaces int)
	DisplayFileStarted(ctx context.Context, path m.Path)
	DisplayFileFinished(ctx context.Context, outcome m.FileOutcome)
	DisplayDiff(ctx context.Context, path m.Path, diff string)
	DisplayWarning(ctx context.Context, message string)
	DisplaySummary(ctx context.Context, report m.RunReport) error
	DisplayReport(ctx context.Context, report m.RunReport) error
}

// NewUI picks the front end for the session: the TUI on interactive
// terminals, plain text everywhere else.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}
	return NewSimpleUI(cmd)
}

// IsTTY reports whether the file is an interactive terminal.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

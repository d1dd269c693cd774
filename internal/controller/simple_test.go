package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	m "sunset.dev/pkg/sunset/internal/model"
)

func newBufferedUI() (*SimpleUI, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buffer := &bytes.Buffer{}
	cmd.SetOut(buffer)

	return NewSimpleUI(cmd), buffer
}

func TestSimpleUI_DisplayFileFinished(t *testing.T) {
	ui, buffer := newBufferedUI()
	ctx := context.Background()

	ui.DisplayFileFinished(ctx, m.FileOutcome{Path: "app/quiet.go"})
	if buffer.Len() != 0 {
		t.Fatalf("DisplayFileFinished() printed for an unchanged file: %q", buffer.String())
	}

	ui.DisplayFileFinished(ctx, m.FileOutcome{
		Path: "app/loud.go", Changed: true,
		ImportsRewritten: 2, TypeRefsRewritten: 5, TypesNeutralized: 1,
	})

	out := buffer.String()
	if !strings.Contains(out, "app/loud.go") || !strings.Contains(out, "refs: 5") {
		t.Fatalf("DisplayFileFinished() = %q, want rewrite counters", out)
	}
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	ui, buffer := newBufferedUI()

	report := m.RunReport{
		Totals: m.Totals{
			FilesScanned: 7, FilesChanged: 3,
			ImportsRewritten: 4, TypesNeutralized: 2,
			Problems: map[m.Severity]int{m.SeverityCritical: 1, m.SeverityMedium: 1},
		},
		Problems: []m.TypeProblem{
			{Class: "app.Panel", Target: "old/gfx.Canvas", Severity: m.SeverityCritical, Note: "retired"},
			{Class: "app.Login", Target: "old/auth.Session", Severity: m.SeverityMedium, Note: "port by hand"},
		},
		Neutralized: []m.NeutralizedType{
			{FQN: "app.Panel", File: "app/panel.go"},
			{FQN: "app.Board", File: "app/board.go", Cascade: true},
		},
		Skipped: []m.SkippedRef{
			{File: "app/net.go", Name: "Conn", Line: 12, Reason: "short name maps into more than one namespace"},
		},
	}

	if err := ui.DisplaySummary(context.Background(), report); err != nil {
		t.Fatalf("DisplaySummary() error = %v", err)
	}

	out := buffer.String()
	for _, want := range []string{
		"Files scanned", "7",
		"old/gfx.Canvas", "critical",
		"app.Board", "yes",
		"Skipped renames", "app/net.go:12",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("DisplaySummary() output missing %q:\n%s", want, out)
		}
	}

	// Critical problems sort above medium ones.
	if strings.Index(out, "old/gfx.Canvas") > strings.Index(out, "old/auth.Session") {
		t.Fatalf("DisplaySummary() did not order problems by severity:\n%s", out)
	}
}

func TestSimpleUI_DisplayDiff(t *testing.T) {
	ui, buffer := newBufferedUI()
	ctx := context.Background()

	ui.DisplayDiff(ctx, "app/app.go", "")
	if buffer.Len() != 0 {
		t.Fatalf("DisplayDiff() printed an empty diff")
	}

	ui.DisplayDiff(ctx, "app/app.go", "-old\n+new")
	if !strings.Contains(buffer.String(), "--- app/app.go") {
		t.Fatalf("DisplayDiff() = %q, want file header", buffer.String())
	}
}

func TestSimpleUI_ConcurrentDisplay(t *testing.T) {
	ui, buffer := newBufferedUI()
	ctx := context.Background()

	// The run pipeline reports per-file progress from parallel workers.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := m.Path(fmt.Sprintf("app/file%d.go", i))
			ui.DisplayFileStarted(ctx, path)
			ui.DisplayFileFinished(ctx, m.FileOutcome{Path: path, Changed: true})
		}(i)
	}
	wg.Wait()

	if got := strings.Count(buffer.String(), "Migrating "); got != 8 {
		t.Fatalf("concurrent DisplayFileStarted wrote %d lines, want 8", got)
	}
}

func TestSimpleUI_CancelledContext(t *testing.T) {
	ui, buffer := newBufferedUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.DisplayWarning(ctx, "should not appear")
	if err := ui.DisplaySummary(ctx, m.RunReport{}); err == nil {
		t.Fatalf("DisplaySummary() expected context error")
	}
	if buffer.Len() != 0 {
		t.Fatalf("cancelled context still produced output: %q", buffer.String())
	}
}

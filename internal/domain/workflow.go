// Package domain implements the migration workflow: scanning a project,
// rewriting renamed imports and type references, detecting references to
// retired API types, and neutralizing declarations that cannot survive
// the migration.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"sunset.dev/pkg/sunset/internal/adapter"
	"sunset.dev/pkg/sunset/internal/catalog"
	"sunset.dev/pkg/sunset/internal/controller"
	m "sunset.dev/pkg/sunset/internal/model"
)

// Args contains the arguments for a migration run.
type Args struct {
	Paths   []m.Path
	Catalog m.Path
	Reports m.Path
	Threads uint
	// WarnOnly downgrades every neutralization to a warning marker.
	WarnOnly bool
	// ShowDiff prints per-file unified diffs.
	ShowDiff bool
	// Verify builds the tree after rewriting.
	Verify bool
	// Force skips the dirty-worktree guard.
	Force bool
	// DumpState dumps the merged unit set and decisions to stderr.
	DumpState bool
	Include   []string
	Exclude   []string
}

// ViewArgs contains the arguments for viewing a stored report.
type ViewArgs struct {
	// Report is a specific report file; empty means the latest run.
	Report  m.Path
	Reports m.Path
}

// Workflow defines the interface for the migration workflow.
type Workflow interface {
	// Run executes the full migration and writes files back.
	Run(ctx context.Context, args Args) (m.RunReport, error)
	// Plan executes the analysis without touching any file.
	Plan(ctx context.Context, args Args) (m.RunReport, error)
	// View displays a stored run report.
	View(ctx context.Context, args ViewArgs) error
}

type migrator struct {
	adapter.SourceFSAdapter
	adapter.GoFileAdapter
	adapter.SemanticAdapter
	adapter.ReportStore
	adapter.BuildVerifier
	adapter.WorktreeGuard
	controller.UI
}

// NewWorkflow creates a Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	goFiles adapter.GoFileAdapter,
	semantic adapter.SemanticAdapter,
	reportStore adapter.ReportStore,
	verifier adapter.BuildVerifier,
	guard adapter.WorktreeGuard,
	ui controller.UI,
) Workflow {
	return &migrator{
		SourceFSAdapter: fsAdapter,
		GoFileAdapter:   goFiles,
		SemanticAdapter: semantic,
		ReportStore:     reportStore,
		BuildVerifier:   verifier,
		WorktreeGuard:   guard,
		UI:              ui,
	}
}

func (w *migrator) Run(ctx context.Context, args Args) (m.RunReport, error) {
	return w.run(ctx, args, false)
}

func (w *migrator) Plan(ctx context.Context, args Args) (m.RunReport, error) {
	return w.run(ctx, args, true)
}

func (w *migrator) View(ctx context.Context, args ViewArgs) error {
	var (
		report m.RunReport
		err    error
	)

	if args.Report != "" {
		report, err = w.ReportStore.Load(args.Report)
	} else {
		report, _, err = w.Latest(args.Reports)
	}
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	return w.DisplayReport(ctx, report)
}

func (w *migrator) run(ctx context.Context, args Args, dryRun bool) (m.RunReport, error) {
	started := time.Now()

	cat, err := catalog.LoadFile(string(args.Catalog))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("load catalog: %w", err)
	}

	base := runBase(args.Paths)
	if !dryRun && !args.Force {
		dirty, err := w.Dirty(base)
		if err != nil {
			return m.RunReport{}, fmt.Errorf("worktree check: %w", err)
		}
		if dirty {
			return m.RunReport{}, fmt.Errorf("worktree at %s has uncommitted changes; commit them or pass --force", base)
		}
	}

	files, err := w.Scan(ctx, args.Paths, args.Include, args.Exclude)
	if err != nil {
		return m.RunReport{}, fmt.Errorf("scan sources: %w", err)
	}

	modRoot, _, err := w.FindModuleRoot(m.Path(base))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("locate module root: %w", err)
	}

	indexes, err := w.TypeIndexes(ctx, string(modRoot))
	if err != nil {
		// Semantic loading is the first resolution tier, not a hard
		// requirement; detection falls back to import corroboration.
		slog.Warn("semantic loading failed, falling back to import heuristics", "error", err)
		w.DisplayWarning(ctx, fmt.Sprintf("type loading failed (%v); analysis falls back to import matching", err))
		indexes = nil
	}

	mode := controller.WithRunMode()
	if dryRun {
		mode = controller.WithPlanMode()
	}
	if err := w.Start(ctx, mode, controller.WithTotalFiles(len(files))); err != nil {
		slog.Error("failed to start UI", "error", err)
		return m.RunReport{}, err
	}
	w.DisplayCatalogInfo(ctx, cat.Len(), len(cat.Namespaces()))

	result, err := w.migrate(ctx, cat, files, indexes, args, dryRun)
	w.Close(ctx)
	if err != nil {
		return m.RunReport{}, err
	}

	report := m.RunReport{
		ID:          uuid.New().String(),
		Started:     started,
		Duration:    time.Since(started),
		Catalog:     string(args.Catalog),
		Paths:       pathStrings(args.Paths),
		WarnOnly:    args.WarnOnly,
		DryRun:      dryRun,
		Totals:      result.totals,
		Files:       result.files,
		Problems:    result.problems,
		Neutralized: result.neutralized,
		Skipped:     result.skipped,
	}

	if args.Verify && !dryRun {
		lines, err := w.Verify(ctx, string(modRoot))
		report.BuildOutput = lines
		if err != nil {
			w.DisplayWarning(ctx, fmt.Sprintf("post-migration build failed: %v", err))
			slog.Warn("post-migration build failed", "error", err, "lines", len(lines))
		}
	}

	if args.Reports != "" {
		path, err := w.Save(args.Reports, report)
		if err != nil {
			return report, fmt.Errorf("save report: %w", err)
		}
		slog.Info("report saved", "path", path, "run", report.ID)
	}

	if err := w.DisplaySummary(ctx, report); err != nil {
		return report, err
	}

	if args.DumpState {
		spew.Fdump(os.Stderr, result.decisions)
	}

	return report, nil
}

// runBase is the directory anchoring worktree and module lookups.
func runBase(paths []m.Path) string {
	if len(paths) == 0 {
		return "."
	}
	base := strings.TrimSuffix(string(paths[0]), "/...")
	if base == "" {
		return "."
	}
	return base
}

func pathStrings(paths []m.Path) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, string(p))
	}
	return out
}

package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"sunset.dev/pkg/sunset/internal/catalog"
	"sunset.dev/pkg/sunset/internal/domain/rewriters"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
	pkg "sunset.dev/pkg/sunset/pkg"
)

// runResult carries everything the report needs out of the pipeline.
type runResult struct {
	totals      m.Totals
	files       []m.FileOutcome
	problems    []m.TypeProblem
	neutralized []m.NeutralizedType
	skipped     []m.SkippedRef
	decisions   map[string]*Decision
}

// fileState is the per-file carry between the rewrite phase and the
// neutralization phase. base stays at generation zero for diffing.
type fileState struct {
	file    m.SourceFile
	base    *srctree.Tree
	tree    *srctree.Tree
	outcome m.FileOutcome
	frags   []m.Fragment
	skipped []m.SkippedRef
}

// migrate runs the two-phase pipeline: per-file rewriting and detection
// in parallel, a single-threaded decision barrier, then per-file
// neutralization and write-back in parallel. The barrier is what makes
// cross-file method sets and the dependency cascade sound.
func (w *migrator) migrate(
	ctx context.Context,
	cat *catalog.Catalog,
	files []m.SourceFile,
	indexes map[m.Path]m.TypeIndex,
	args Args,
	dryRun bool,
) (runResult, error) {
	states := make([]*fileState, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	if args.Threads > 0 {
		group.SetLimit(int(args.Threads))
	}
	for i, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			w.DisplayFileStarted(groupCtx, file.Path)

			state, err := w.rewriteFile(cat, indexes[file.Path], file)
			if err != nil {
				slog.Error("file failed the rewrite phase", "path", file.Path, "error", err)
				w.DisplayWarning(groupCtx, fmt.Sprintf("skipping %s: %v", file.Path, err))
				return nil
			}
			states[i] = state

			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return runResult{}, err
	}

	var (
		frags   []m.Fragment
		skipped []m.SkippedRef
	)
	for _, state := range states {
		if state == nil {
			continue
		}
		frags = append(frags, state.frags...)
		skipped = append(skipped, state.skipped...)
	}

	units := MergeFragments(frags)
	decisions := Decide(units, args.WarnOnly)
	Cascade(units, decisions)

	outcomes, err := pkg.NewFileSpill[m.FileOutcome]()
	if err != nil {
		return runResult{}, fmt.Errorf("create outcome spill: %w", err)
	}
	defer func() { _ = outcomes.Close() }()

	group, groupCtx = errgroup.WithContext(ctx)
	if args.Threads > 0 {
		group.SetLimit(int(args.Threads))
	}
	for _, state := range states {
		if state == nil {
			continue
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			outcome, err := w.finishFile(groupCtx, state, units, decisions, dryRun, args.ShowDiff)
			if err != nil {
				slog.Error("file failed the neutralization phase", "path", state.file.Path, "error", err)
				w.DisplayWarning(groupCtx, fmt.Sprintf("leaving %s untouched: %v", state.file.Path, err))
				return nil
			}
			if err := outcomes.Append(outcome); err != nil {
				return fmt.Errorf("spill outcome for %s: %w", state.file.Path, err)
			}
			w.DisplayFileFinished(groupCtx, outcome)

			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return runResult{}, err
	}

	totals, outFiles, err := totalsFromOutcomes(outcomes)
	if err != nil {
		return runResult{}, fmt.Errorf("fold outcomes: %w", err)
	}
	neutralized := applyDecisionTotals(&totals, units, decisions)
	problems := collectProblems(&totals, units)

	return runResult{
		totals:      totals,
		files:       outFiles,
		problems:    problems,
		neutralized: neutralized,
		skipped:     skipped,
		decisions:   decisions,
	}, nil
}

// rewriteFile runs the mechanical stages on one file: import renames,
// type-reference substitution, successor imports, then detection on the
// rewritten tree. Each stage applies against the generation the previous
// stage produced.
func (w *migrator) rewriteFile(cat *catalog.Catalog, idx m.TypeIndex, file m.SourceFile) (*fileState, error) {
	tree, err := w.GoFileAdapter.Load(file.Path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	state := &fileState{file: file, base: tree}

	// The as-loaded import list survives the whole pipeline; later
	// stages resolve old qualifiers against it, not the live tree.
	orig := rewriters.Imports(tree)

	importEdits, changes := rewriters.PlanImports(tree, cat)
	if tree, err = tree.Apply(importEdits); err != nil {
		return nil, fmt.Errorf("rewrite imports: %w", err)
	}

	plan := rewriters.PlanTypeRefs(tree, cat, orig)
	if tree, err = tree.Apply(plan.Edits); err != nil {
		return nil, fmt.Errorf("rewrite type refs: %w", err)
	}

	if addEdits := rewriters.AddImports(tree, plan.NeedImports); len(addEdits) > 0 {
		if tree, err = tree.Apply(addEdits); err != nil {
			return nil, fmt.Errorf("add successor imports: %w", err)
		}
	}

	state.tree = tree
	state.skipped = plan.Skipped
	state.frags = DetectFile(tree, cat, orig, idx, file)
	state.outcome = m.FileOutcome{
		Path:              file.Path,
		Kind:              file.Kind,
		ImportsRewritten:  len(changes),
		TypeRefsRewritten: len(plan.Rewrites),
	}

	return state, nil
}

// finishFile applies the neutralization decisions to one file, sweeps
// imports the retirements orphaned, and writes the result back unless
// the run is a dry one.
func (w *migrator) finishFile(
	ctx context.Context,
	state *fileState,
	units map[string]*Unit,
	decisions map[string]*Decision,
	dryRun bool,
	showDiff bool,
) (m.FileOutcome, error) {
	tree := state.tree

	edits, leftovers := PlanNeutralize(tree, state.file.PkgPath, decisions)
	if len(edits) > 0 {
		var err error
		if tree, err = tree.Apply(edits); err != nil {
			return m.FileOutcome{}, fmt.Errorf("neutralize: %w", err)
		}
	}
	for _, fqn := range leftovers {
		slog.Info("declaration already retired by an earlier run", "fqn", fqn, "path", state.file.Path)
	}

	if tree.Gen > 0 {
		if sweep := rewriters.PlanUnusedImports(tree); len(sweep) > 0 {
			var err error
			if tree, err = tree.Apply(sweep); err != nil {
				return m.FileOutcome{}, fmt.Errorf("sweep imports: %w", err)
			}
		}
	}

	outcome := state.outcome
	outcome.TypesWarned, outcome.TypesNeutralized = fileDecisionCounts(state.file.Path, units, decisions)
	outcome.Hash = w.HashBytes(tree.Src)
	outcome.Generations = tree.Gen
	outcome.Changed = !bytes.Equal(state.base.Src, tree.Src)

	if !outcome.Changed {
		return outcome, nil
	}

	if showDiff || dryRun {
		diff, err := srctree.Diff(state.base, tree)
		if err != nil {
			return m.FileOutcome{}, fmt.Errorf("diff: %w", err)
		}
		w.DisplayDiff(ctx, state.file.Path, diff)
	}

	if !dryRun {
		if err := w.WriteFile(state.file.Path, tree.Src, 0o644); err != nil {
			return m.FileOutcome{}, fmt.Errorf("write back: %w", err)
		}
	}

	return outcome, nil
}

// fileDecisionCounts tallies warned and neutralized units touching one
// file.
func fileDecisionCounts(path m.Path, units map[string]*Unit, decisions map[string]*Decision) (warned, neutralized int) {
	for fqn, u := range units {
		d := decisions[fqn]
		if d == nil || !unitTouchesFile(u, path) {
			continue
		}
		switch d.State {
		case m.StateWarned:
			warned++
		case m.StateNeutralized:
			neutralized++
		}
	}
	return warned, neutralized
}

func unitTouchesFile(u *Unit, path m.Path) bool {
	for _, f := range u.Files {
		if f == path {
			return true
		}
	}
	return false
}

package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "sunset.dev/pkg/sunset/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream. The
// migration pipeline reports per-file progress from worker goroutines,
// so writes to the stream are serialized.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayCatalogInfo prints the loaded catalog dimensions.
func (s *SimpleUI) DisplayCatalogInfo(ctx context.Context, entries int, namespaces int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Catalog: %d type entries across %d namespaces\n", entries, namespaces)
}

// DisplayFileStarted announces one file entering the pipeline.
func (s *SimpleUI) DisplayFileStarted(ctx context.Context, path m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Migrating %s\n", path)
}

// DisplayFileFinished reports what the pipeline did to one file.
func (s *SimpleUI) DisplayFileFinished(ctx context.Context, outcome m.FileOutcome) {
	if err := ctx.Err(); err != nil {
		return
	}

	if !outcome.Changed {
		return
	}

	s.printf("Rewrote %s (imports: %d, refs: %d, warned: %d, retired: %d)\n",
		outcome.Path, outcome.ImportsRewritten, outcome.TypeRefsRewritten,
		outcome.TypesWarned, outcome.TypesNeutralized)
}

// DisplayDiff prints the pending changes for one file.
func (s *SimpleUI) DisplayDiff(ctx context.Context, path m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if diff == "" {
		return
	}

	s.printf("--- %s\n%s\n", path, diff)
}

// DisplayWarning surfaces a non-fatal condition.
func (s *SimpleUI) DisplayWarning(ctx context.Context, message string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("warning: %s\n", message)
}

// DisplaySummary prints the run totals, problems, and retirements.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderTotalsTable(report.Totals))

	if len(report.Problems) > 0 {
		s.printf("\n%s", renderProblemsTable(report.Problems))
	}

	if len(report.Neutralized) > 0 {
		s.printf("\n%s", renderNeutralizedTable(report.Neutralized))
	}

	if len(report.Skipped) > 0 {
		s.printf("\nSkipped renames (resolve by hand):\n")
		for _, skip := range report.Skipped {
			s.printf("  %s:%d %s: %s\n", skip.File, skip.Line, skip.Name, skip.Reason)
		}
	}

	return nil
}

// DisplayReport renders a stored report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Run %s started %s (%s)\n", report.ID,
		report.Started.Format("2006-01-02 15:04:05"), report.Duration)
	if report.DryRun {
		s.printf("Mode: plan (no files written)\n")
	}

	return s.DisplaySummary(ctx, report)
}

func renderTotalsTable(totals m.Totals) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Metric", "Count"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	rows := [][]string{
		{"Files scanned", fmt.Sprintf("%d", totals.FilesScanned)},
		{"Files changed", fmt.Sprintf("%d", totals.FilesChanged)},
		{"Imports rewritten", fmt.Sprintf("%d", totals.ImportsRewritten)},
		{"Type refs rewritten", fmt.Sprintf("%d", totals.TypeRefsRewritten)},
		{"Types warned", fmt.Sprintf("%d", totals.TypesWarned)},
		{"Types retired", fmt.Sprintf("%d", totals.TypesNeutralized)},
		{"Retired by cascade", fmt.Sprintf("%d", totals.CascadeNeutralized)},
	}
	for _, row := range rows {
		table.Append(row)
	}

	table.SetFooter([]string{"Problems", fmt.Sprintf("%d", problemCount(totals))})
	table.Render()

	return tableBuffer.String()
}

func renderProblemsTable(problems []m.TypeProblem) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Severity", "Declaration", "Retired Type", "Note"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	sorted := make([]m.TypeProblem, len(problems))
	copy(sorted, problems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() > sorted[j].Severity.Rank()
	})

	for _, p := range sorted {
		table.Append([]string{string(p.Severity), p.Class, p.Target, p.Note})
	}

	table.Render()

	return tableBuffer.String()
}

func renderNeutralizedTable(neutralized []m.NeutralizedType) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Retired Declaration", "File", "Cascade"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER,
	})

	for _, n := range neutralized {
		cascade := ""
		if n.Cascade {
			cascade = "yes"
		}
		table.Append([]string{n.FQN, string(n.File), cascade})
	}

	table.Render()

	return tableBuffer.String()
}

func problemCount(totals m.Totals) int {
	count := 0
	for _, n := range totals.Problems {
		count += n
	}

	return count
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	m "sunset.dev/pkg/sunset/internal/model"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func severityLabel(severity m.Severity) string {
	switch severity {
	case m.SeverityCritical:
		return criticalStyle.Render(string(severity))
	case m.SeverityHigh:
		return highStyle.Render(string(severity))
	case m.SeverityMedium:
		return mediumStyle.Render(string(severity))
	}

	return string(severity)
}

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live progress view for run mode. Plan mode prints
// directly; diffs do not mix with an alternate screen.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	config := StartConfig{}
	for _, option := range options {
		option(&config)
	}

	if config.mode != ModeRun {
		return nil
	}

	t.done = make(chan struct{})
	t.program = tea.NewProgram(newRunModel(config.totalFiles), tea.WithOutput(t.output))

	go func() {
		defer close(t.done)
		_, _ = t.program.Run()
	}()

	return nil
}

// Close tells the live view the run ended.
func (t *TUI) Close(ctx context.Context) {
	if t.program == nil {
		return
	}

	t.program.Send(runDoneMsg{})
	<-t.done
	t.program = nil
}

// Wait blocks until the live view exits.
func (t *TUI) Wait(ctx context.Context) {
	if t.done == nil {
		return
	}

	select {
	case <-ctx.Done():
	case <-t.done:
	}
}

// DisplayCatalogInfo prints the loaded catalog dimensions.
func (t *TUI) DisplayCatalogInfo(ctx context.Context, entries int, namespaces int) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintf(t.output, "Catalog: %d type entries across %d namespaces\n", entries, namespaces)
}

// DisplayFileStarted feeds the live progress view.
func (t *TUI) DisplayFileStarted(ctx context.Context, path m.Path) {
	if t.program == nil || ctx.Err() != nil {
		return
	}

	t.program.Send(fileStartedMsg{path: path})
}

// DisplayFileFinished feeds the live progress view.
func (t *TUI) DisplayFileFinished(ctx context.Context, outcome m.FileOutcome) {
	if t.program == nil || ctx.Err() != nil {
		return
	}

	t.program.Send(fileFinishedMsg{outcome: outcome})
}

// DisplayDiff prints the pending changes for one file.
func (t *TUI) DisplayDiff(ctx context.Context, path m.Path, diff string) {
	if diff == "" || ctx.Err() != nil {
		return
	}

	fmt.Fprintf(t.output, "%s\n%s\n", headerStyle.Render("--- "+string(path)), diff)
}

// DisplayWarning surfaces a non-fatal condition.
func (t *TUI) DisplayWarning(ctx context.Context, message string) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintf(t.output, "%s %s\n", warnStyle.Render("warning:"), message)
}

// DisplaySummary prints the run totals, problems, and retirements after
// the live view closed.
func (t *TUI) DisplaySummary(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintf(t.output, "\n%s\n", headerStyle.Render("Migration summary"))
	fmt.Fprintf(t.output, "%s", renderTotalsTable(report.Totals))

	if len(report.Problems) > 0 {
		fmt.Fprintf(t.output, "\n%s", renderProblemsTable(report.Problems))
	}

	if len(report.Neutralized) > 0 {
		fmt.Fprintf(t.output, "\n%s", renderNeutralizedTable(report.Neutralized))
	}

	return nil
}

// DisplayReport renders a stored report, paginated when it does not fit
// the terminal.
func (t *TUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newReportModel(report)

	// Get initial terminal size
	if f, ok := t.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If the report is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(t.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

type fileStartedMsg struct {
	path m.Path
}

type fileFinishedMsg struct {
	outcome m.FileOutcome
}

type runDoneMsg struct{}

// runModel is the Bubble Tea model for the live run progress.
type runModel struct {
	spinner  spinner.Model
	progress progress.Model
	total    int
	finished int
	changed  int
	current  m.Path
	quitting bool
}

func newRunModel(total int) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return runModel{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		total:    total,
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			rm.quitting = true
			return rm, tea.Quit
		}

		return rm, nil

	case fileStartedMsg:
		rm.current = msg.path
		return rm, nil

	case fileFinishedMsg:
		rm.finished++
		if msg.outcome.Changed {
			rm.changed++
		}

		if rm.total > 0 {
			return rm, rm.progress.SetPercent(float64(rm.finished) / float64(rm.total))
		}

		return rm, nil

	case runDoneMsg:
		rm.quitting = true
		return rm, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd

	case progress.FrameMsg:
		model, cmd := rm.progress.Update(msg)
		if p, ok := model.(progress.Model); ok {
			rm.progress = p
		}

		return rm, cmd
	}

	return rm, nil
}

func (rm runModel) View() string {
	if rm.quitting {
		return fmt.Sprintf("Processed %d file(s), %d changed\n", rm.finished, rm.changed)
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("Sunset - API migration"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s %s\n", rm.spinner.View(), fileStyle.Render(string(rm.current)))

	if rm.total > 0 {
		fmt.Fprintf(&b, "  %s %d/%d\n", rm.progress.View(), rm.finished, rm.total)
	} else {
		fmt.Fprintf(&b, "  %d file(s) processed\n", rm.finished)
	}

	b.WriteString("\n  q: abort display\n")

	return b.String()
}

// reportModel is the Bubble Tea model for the stored report viewer.
type reportModel struct {
	report   m.RunReport
	height   int
	width    int
	offset   int
	quitting bool
}

func newReportModel(report m.RunReport) reportModel {
	return reportModel{report: report}
}

func (rp reportModel) Init() tea.Cmd {
	return nil
}

func (rp reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rp.height = msg.Height
		rp.width = msg.Width

		return rp, nil

	case tea.KeyMsg:
		return rp.handleKeyPress(msg)
	}

	return rp, nil
}

func (rp reportModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
		rp.quitting = true
		return rp, tea.Quit
	}

	switch msg.String() {
	case "q":
		rp.quitting = true
		return rp, tea.Quit

	case "down", "j":
		rp.offset++
		if rp.offset > rp.maxOffset() {
			rp.offset = rp.maxOffset()
		}

	case "up", "k":
		rp.offset--
		if rp.offset < 0 {
			rp.offset = 0
		}

	case "g", "home":
		rp.offset = 0

	case "G", "end":
		rp.offset = rp.maxOffset()

	case "d", "pgdown":
		rp.offset += rp.itemsPerPage()
		if rp.offset > rp.maxOffset() {
			rp.offset = rp.maxOffset()
		}

	case "u", "pgup":
		rp.offset -= rp.itemsPerPage()
		if rp.offset < 0 {
			rp.offset = 0
		}
	}

	return rp, nil
}

func (rp reportModel) itemsPerPage() int {
	if rp.height == 0 {
		return 10
	}
	// Reserved lines:
	// - Header + run line: 3 lines
	// - Totals line + blank: 2 lines
	// - Footer (pagination + help): 3 lines
	reserved := 8

	available := rp.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

func (rp reportModel) maxOffset() int {
	total := len(rp.contentLines())

	perPage := rp.itemsPerPage()
	if total <= perPage {
		return 0
	}

	return total - perPage
}

func (rp reportModel) needsPagination() bool {
	return rp.height > 0 && len(rp.contentLines()) > rp.itemsPerPage()
}

func (rp reportModel) contentLines() []string {
	var lines []string

	for _, p := range rp.report.Problems {
		lines = append(lines, fmt.Sprintf("  %s %s -> %s", severityLabel(p.Severity), p.Class, p.Target))
		if p.Note != "" {
			lines = append(lines, fileStyle.Render("      "+p.Note))
		}
	}

	for _, n := range rp.report.Neutralized {
		label := "retired"
		if n.Cascade {
			label = "retired (cascade)"
		}

		lines = append(lines, fmt.Sprintf("  %s %s", criticalStyle.Render(label), n.FQN))
	}

	return lines
}

func (rp reportModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Sunset - migration report"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Run %s started %s\n\n", rp.report.ID, rp.report.Started.Format("2006-01-02 15:04:05"))

	totals := rp.report.Totals
	fmt.Fprintf(&b, "  Files: %d scanned, %d changed | Rewrites: %d imports, %d refs | Retired: %d (%d cascade)\n\n",
		totals.FilesScanned, totals.FilesChanged, totals.ImportsRewritten,
		totals.TypeRefsRewritten, totals.TypesNeutralized, totals.CascadeNeutralized)

	lines := rp.contentLines()
	if len(lines) == 0 {
		b.WriteString("  No problems recorded\n")
		return b.String()
	}

	needsPagination := rp.needsPagination()
	start, end := 0, len(lines)

	if needsPagination {
		start = rp.offset
		if start > len(lines)-1 {
			start = len(lines) - 1
		}

		end = start + rp.itemsPerPage()
		if end > len(lines) {
			end = len(lines)
		}
	}

	for _, line := range lines[start:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if needsPagination {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Lines %d-%d of %d\n", start+1, end, len(lines))
		b.WriteString("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit\n")
	}

	return b.String()
}

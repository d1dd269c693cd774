package domain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunset.dev/pkg/sunset/internal/adapter"
	"sunset.dev/pkg/sunset/internal/controller"
	m "sunset.dev/pkg/sunset/internal/model"
)

type fixedSemantic struct {
	indexes map[m.Path]m.TypeIndex
	err     error
}

func (s fixedSemantic) TypeIndexes(context.Context, string) (map[m.Path]m.TypeIndex, error) {
	return s.indexes, s.err
}

type fixedGuard struct {
	dirty bool
	err   error
}

func (g fixedGuard) Dirty(string) (bool, error) { return g.dirty, g.err }

type fixedVerifier struct {
	lines []string
	err   error
}

func (v fixedVerifier) Verify(context.Context, string) ([]string, error) { return v.lines, v.err }

type workflowFixture struct {
	dir      string
	catalog  string
	reports  string
	guard    fixedGuard
	verifier fixedVerifier
	buffer   *bytes.Buffer
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	dir := t.TempDir()
	writeProjectFile(t, dir, "go.mod", "module demo.example/app\n\ngo 1.25\n")

	catalogPath := filepath.Join(dir, "sunset-catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(detectCatalog), 0o644))

	return &workflowFixture{
		dir:     dir,
		catalog: catalogPath,
		reports: filepath.Join(dir, ".sunset-reports"),
		buffer:  &bytes.Buffer{},
	}
}

func (f *workflowFixture) workflow() Workflow {
	cmd := &cobra.Command{}
	cmd.SetOut(f.buffer)
	cmd.SetErr(f.buffer)

	return NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewLocalGoFileAdapter(),
		fixedSemantic{},
		adapter.NewYAMLReportStore(),
		f.verifier,
		f.guard,
		controller.NewSimpleUI(cmd),
	)
}

func (f *workflowFixture) args() Args {
	return Args{
		Paths:   []m.Path{m.Path(f.dir) + "/..."},
		Catalog: m.Path(f.catalog),
		Reports: m.Path(f.reports),
		Threads: 2,
	}
}

func writeProjectFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readProjectFile(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(content)
}

const fixtureWidgets = `package app

import (
	"oldcorp.example/sdk/ui"
)

type Toolbar struct {
	primary ui.Widget
}
`

const fixtureCanvas = `package app

import "oldcorp.example/sdk/legacygfx"

type Easel struct {
	legacygfx.Canvas
}

type Stand struct {
	easel Easel
}
`

func TestWorkflowRunRewritesAndRetires(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)
	writeProjectFile(t, f.dir, "canvas.go", fixtureCanvas)

	report, err := f.workflow().Run(context.Background(), f.args())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.DryRun)
	assert.Equal(t, 2, report.Totals.FilesScanned)
	assert.Equal(t, 2, report.Totals.FilesChanged)
	// widgets.go renames its import, canvas.go loses one outright.
	assert.Equal(t, 2, report.Totals.ImportsRewritten)
	assert.Equal(t, 1, report.Totals.TypeRefsRewritten)
	assert.Equal(t, 2, report.Totals.TypesNeutralized)
	assert.Equal(t, 1, report.Totals.CascadeNeutralized)

	widgets := readProjectFile(t, f.dir, "widgets.go")
	assert.Contains(t, widgets, `"newcorp.example/kit/uikit"`)
	assert.Contains(t, widgets, "uikit.Control")
	assert.NotContains(t, widgets, "oldcorp.example/sdk/ui")

	canvas := readProjectFile(t, f.dir, "canvas.go")
	assert.Contains(t, canvas, "RETIRED BY SUNSET")
	assert.NotContains(t, canvas, `"oldcorp.example/sdk/legacygfx"`)

	// Stand embeds nothing retired itself; it goes down with Easel.
	var stand m.NeutralizedType
	for _, n := range report.Neutralized {
		if n.FQN == "demo.example/app.Stand" {
			stand = n
		}
	}
	require.NotEmpty(t, stand.FQN, "Stand missing from neutralized set: %v", report.Neutralized)
	assert.True(t, stand.Cascade)
}

func TestWorkflowRunSavesReport(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)

	report, err := f.workflow().Run(context.Background(), f.args())
	require.NoError(t, err)

	store := adapter.NewYAMLReportStore()
	loaded, _, err := store.Latest(m.Path(f.reports))
	require.NoError(t, err)
	assert.Equal(t, report.ID, loaded.ID)
	assert.Equal(t, report.Totals, loaded.Totals)
}

func TestWorkflowRunIsIdempotent(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "canvas.go", fixtureCanvas)

	wf := f.workflow()
	first, err := wf.Run(context.Background(), f.args())
	require.NoError(t, err)
	require.Equal(t, 1, first.Totals.FilesChanged)

	afterFirst := readProjectFile(t, f.dir, "canvas.go")

	second, err := wf.Run(context.Background(), f.args())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Totals.FilesChanged)
	assert.Equal(t, afterFirst, readProjectFile(t, f.dir, "canvas.go"))
}

func TestWorkflowPlanLeavesFilesAlone(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)
	f.guard = fixedGuard{dirty: true} // plan never consults the guard

	args := f.args()
	args.ShowDiff = true
	report, err := f.workflow().Plan(context.Background(), args)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Totals.FilesChanged)
	assert.Equal(t, fixtureWidgets, readProjectFile(t, f.dir, "widgets.go"))
	assert.Contains(t, f.buffer.String(), "uikit.Control")
}

func TestWorkflowRunRefusesDirtyWorktree(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)
	f.guard = fixedGuard{dirty: true}

	_, err := f.workflow().Run(context.Background(), f.args())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncommitted changes")
	assert.Equal(t, fixtureWidgets, readProjectFile(t, f.dir, "widgets.go"))

	args := f.args()
	args.Force = true
	_, err = f.workflow().Run(context.Background(), args)
	assert.NoError(t, err)
}

func TestWorkflowRunWarnOnly(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "canvas.go", fixtureCanvas)

	args := f.args()
	args.WarnOnly = true
	report, err := f.workflow().Run(context.Background(), args)
	require.NoError(t, err)

	// No unit is neutralized, so the cascade never reaches Stand.
	assert.Equal(t, 0, report.Totals.TypesNeutralized)
	assert.Equal(t, 1, report.Totals.TypesWarned)

	canvas := readProjectFile(t, f.dir, "canvas.go")
	assert.Contains(t, canvas, "// SUNSET: ")
	assert.NotContains(t, canvas, "RETIRED BY SUNSET")
	assert.Contains(t, canvas, "type Easel struct {")
}

func TestWorkflowRunVerify(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)
	f.verifier = fixedVerifier{
		lines: []string{"app/broken.go:3:2: undefined: gone"},
		err:   errors.New("exit status 1"),
	}

	args := f.args()
	args.Verify = true
	report, err := f.workflow().Run(context.Background(), args)
	require.NoError(t, err)

	assert.Equal(t, []string{"app/broken.go:3:2: undefined: gone"}, report.BuildOutput)
	assert.Contains(t, f.buffer.String(), "post-migration build failed")
}

func TestWorkflowRunReportsBadCatalog(t *testing.T) {
	f := newWorkflowFixture(t)
	require.NoError(t, os.WriteFile(f.catalog, []byte("types:\n  - name: X\n"), 0o644))

	_, err := f.workflow().Run(context.Background(), f.args())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestWorkflowViewLatest(t *testing.T) {
	f := newWorkflowFixture(t)
	writeProjectFile(t, f.dir, "widgets.go", fixtureWidgets)

	wf := f.workflow()
	report, err := wf.Run(context.Background(), f.args())
	require.NoError(t, err)

	f.buffer.Reset()
	err = wf.View(context.Background(), ViewArgs{Reports: m.Path(f.reports)})
	require.NoError(t, err)

	out := f.buffer.String()
	assert.Contains(t, out, "Run "+report.ID)
	assert.Contains(t, out, "Files scanned")
}

func TestWorkflowViewMissingReport(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.workflow().View(context.Background(), ViewArgs{
		Report:  m.Path(filepath.Join(f.dir, "nope.yaml")),
		Reports: m.Path(f.reports),
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "load report"))
}

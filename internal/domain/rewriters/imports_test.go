package rewriters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunset.dev/pkg/sunset/internal/catalog"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

const rewriteCatalog = `
types:
  - name: Widget
    namespace: oldcorp.example/sdk/ui
    category: renamed
    replacement: {name: Control, namespace: newcorp.example/kit/uikit}
  - name: Canvas
    namespace: oldcorp.example/sdk/legacygfx
    category: no-equivalent
    note: rendering surface retired without successor
    quarantine: true
  - name: Conn
    namespace: oldcorp.example/sdk/netio
    category: renamed
    replacement: {name: Conn, namespace: newcorp.example/kit/netkit}
  - name: Conn
    namespace: oldcorp.example/sdk/legacynet
    category: renamed
    replacement: {name: Dialer, namespace: newcorp.example/kit/netkit}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(rewriteCatalog))
	require.NoError(t, err)
	return cat
}

func loadTree(t *testing.T, src string) *srctree.Tree {
	t.Helper()
	tree, err := srctree.Load("app/app.go", []byte(src))
	require.NoError(t, err)
	return tree
}

func applyPlan(t *testing.T, tree *srctree.Tree, edits []srctree.Edit) *srctree.Tree {
	t.Helper()
	next, err := tree.Apply(edits)
	require.NoError(t, err)
	return next
}

func TestPlanImportsRenames(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"fmt"

	"oldcorp.example/sdk/netio"
)

var _ = fmt.Sprint
var _ netio.Conn
`)
	edits, changes := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), `"newcorp.example/kit/netkit"`)
	assert.NotContains(t, string(next.Src), "oldcorp.example/sdk/netio")
	require.Len(t, changes, 1)
	assert.Equal(t, "oldcorp.example/sdk/netio", changes[0].Old)
	assert.Equal(t, "newcorp.example/kit/netkit", changes[0].New)
}

func TestPlanImportsRenamePreservesAlias(t *testing.T) {
	tree := loadTree(t, `package app

import oldnet "oldcorp.example/sdk/netio"

var _ oldnet.Conn
`)
	edits, changes := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), `import oldnet "newcorp.example/kit/netkit"`)
	require.Len(t, changes, 1)
	assert.Equal(t, "oldnet", changes[0].Alias)
}

func TestPlanImportsRemovesRetiredNamespace(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"fmt"

	"oldcorp.example/sdk/legacygfx"
)

var _ = fmt.Sprint
var _ legacygfx.Canvas
`)
	edits, changes := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.NotContains(t, string(next.Src), `"oldcorp.example/sdk/legacygfx"`)
	// Only the import line goes; the body reference stays for the detector.
	assert.Contains(t, string(next.Src), "legacygfx.Canvas")
	assert.Contains(t, string(next.Src), `"fmt"`)
	// The spec was its own group, so its separator line goes with it.
	assert.NotContains(t, string(next.Src), "\n\n)")
	require.Len(t, changes, 1)
	assert.Equal(t, "oldcorp.example/sdk/legacygfx", changes[0].Old)
	assert.Empty(t, changes[0].New)
}

func TestPlanImportsRemovalConsumesLeadingSeparator(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"oldcorp.example/sdk/legacygfx"

	"fmt"
)

var _ = fmt.Sprint
var _ legacygfx.Canvas
`)
	edits, _ := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), "import (\n\t\"fmt\"\n)")
}

func TestPlanImportsRemovesWholeDeclWhenEmpty(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"oldcorp.example/sdk/legacygfx"
)

var _ legacygfx.Canvas
`)
	edits, _ := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.NotContains(t, string(next.Src), "import")
}

func TestPlanImportsSubPathRename(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/netio/stream"

var _ stream.Reader
`)
	edits, changes := PlanImports(tree, testCatalog(t))
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), `"newcorp.example/kit/netkit/stream"`)
	require.Len(t, changes, 1)
	assert.Equal(t, "newcorp.example/kit/netkit/stream", changes[0].New)
}

func TestPlanImportsLeavesUnrelatedFilesAlone(t *testing.T) {
	src := `package app

import (
	"fmt"
	"strings"
)

var _ = fmt.Sprint
var _ = strings.TrimSpace
`
	tree := loadTree(t, src)
	edits, changes := PlanImports(tree, testCatalog(t))
	assert.Empty(t, edits)
	assert.Empty(t, changes)
}

func TestAddImportsGrouped(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"fmt"
)

var _ = fmt.Sprint
`)
	edits := AddImports(tree, []string{"newcorp.example/kit/uikit", "fmt", "newcorp.example/kit/uikit"})
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), `"newcorp.example/kit/uikit"`)
	// fmt was already present and the duplicate collapses to one insert.
	assert.Equal(t, 1, len(edits))
}

func TestAddImportsWithoutImportBlock(t *testing.T) {
	tree := loadTree(t, "package app\n\nvar X int\n")
	edits := AddImports(tree, []string{"newcorp.example/kit/uikit"})
	next := applyPlan(t, tree, edits)

	assert.Contains(t, string(next.Src), "import (\n\t\"newcorp.example/kit/uikit\"\n)")
}

func TestAddImportsNothingMissing(t *testing.T) {
	tree := loadTree(t, `package app

import "fmt"

var _ = fmt.Sprint
`)
	assert.Empty(t, AddImports(tree, []string{"fmt"}))
	assert.Empty(t, AddImports(tree, nil))
}

func TestImportsSnapshot(t *testing.T) {
	tree := loadTree(t, `package app

import (
	"fmt"
	oldnet "oldcorp.example/sdk/netio"
	. "oldcorp.example/sdk/ui"
)

var _ = fmt.Sprint
var _ oldnet.Conn
var _ = Widget{}
`)
	recs := Imports(tree)
	assert.Equal(t, []m.ImportRecord{
		{Path: "fmt"},
		{Alias: "oldnet", Path: "oldcorp.example/sdk/netio"},
		{Alias: ".", Path: "oldcorp.example/sdk/ui"},
	}, recs)
}

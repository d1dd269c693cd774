package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunset.dev/pkg/sunset/internal/catalog"
	"sunset.dev/pkg/sunset/internal/domain/rewriters"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

const detectCatalog = `
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
  - name: Session
    namespace: oldcorp.example/sdk/auth
    category: manual-conversion-required
    note: token handling moved into netkit.Credentials
  - name: Conn
    namespace: oldcorp.example/sdk/netio
    category: renamed
    replacement: {name: Conn, namespace: newcorp.example/kit/netkit}
  - name: Conn
    namespace: oldcorp.example/sdk/legacynet
    category: renamed
    replacement: {name: Dialer, namespace: newcorp.example/kit/netkit}
protected:
  - demo.example/app.Anchor
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(detectCatalog))
	require.NoError(t, err)
	return cat
}

func loadTree(t *testing.T, src string) *srctree.Tree {
	t.Helper()
	tree, err := srctree.Load("app/app.go", []byte(src))
	require.NoError(t, err)
	return tree
}

func detect(t *testing.T, tree *srctree.Tree, idx m.TypeIndex, file m.SourceFile) []m.Fragment {
	t.Helper()
	if file.PkgPath == "" {
		file.PkgPath = "demo.example/app"
	}
	return DetectFile(tree, testCatalog(t), rewriters.Imports(tree), idx, file)
}

func fragmentByName(t *testing.T, frags []m.Fragment, name string) m.Fragment {
	t.Helper()
	for _, f := range frags {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no fragment named %s in %v", name, frags)
	return m.Fragment{}
}

func TestDetectFileEmbeddedRetiredBaseIsCritical(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/legacygfx"

type Panel struct {
	legacygfx.Canvas
}

type Overlay struct {
	surface legacygfx.Canvas
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	panel := fragmentByName(t, frags, "Panel")
	require.Len(t, panel.Problems, 1)
	assert.Equal(t, m.SeverityCritical, panel.Problems[0].Severity)
	assert.True(t, panel.Problems[0].ViaEmbedding)
	assert.True(t, panel.Problems[0].Quarantine)
	assert.Equal(t, "oldcorp.example/sdk/legacygfx.Canvas", panel.Problems[0].Target)
	assert.Equal(t, "demo.example/app.Panel", panel.Problems[0].Class)

	overlay := fragmentByName(t, frags, "Overlay")
	require.Len(t, overlay.Problems, 1)
	assert.Equal(t, m.SeverityHigh, overlay.Problems[0].Severity)
	assert.False(t, overlay.Problems[0].ViaEmbedding)
}

func TestDetectFileDedupsPerTarget(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/legacygfx"

type Scene struct {
	a legacygfx.Canvas
	b legacygfx.Canvas
	c []*legacygfx.Canvas
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	scene := fragmentByName(t, frags, "Scene")
	require.Len(t, scene.Problems, 1)
	assert.Equal(t, m.SeverityHigh, scene.Problems[0].Severity)
}

func TestDetectFileEmbeddedSightingEscalates(t *testing.T) {
	// Field first, embedded base second: one problem at the worst
	// severity seen.
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/legacygfx"

type Frame struct {
	backing legacygfx.Canvas
	legacygfx.Canvas
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	frame := fragmentByName(t, frags, "Frame")
	require.Len(t, frame.Problems, 1)
	assert.Equal(t, m.SeverityCritical, frame.Problems[0].Severity)
	assert.True(t, frame.Problems[0].ViaEmbedding)
}

func TestDetectFileManualConversionIsMedium(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/auth"

func Login(s auth.Session) error { return nil }
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	login := fragmentByName(t, frags, "Login")
	require.Len(t, login.Problems, 1)
	assert.Equal(t, m.SeverityMedium, login.Problems[0].Severity)
	assert.False(t, login.Problems[0].Quarantine)
	assert.Contains(t, login.Problems[0].Note, "netkit.Credentials")
}

func TestDetectFileAmbiguousRenameReportedMedium(t *testing.T) {
	// The rewriter skips bare Conn because two namespaces claim the
	// name; the detector reports it when a dot import corroborates one.
	tree := loadTree(t, `package app

import . "oldcorp.example/sdk/netio"

type Session struct {
	link Conn
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	session := fragmentByName(t, frags, "Session")
	require.Len(t, session.Problems, 1)
	assert.Equal(t, m.SeverityMedium, session.Problems[0].Severity)
	assert.Contains(t, session.Problems[0].Note, "ambiguous")
	assert.Contains(t, session.Problems[0].Note, "newcorp.example/kit/netkit.Conn")
}

func TestDetectFileBareNameWithoutCorroboration(t *testing.T) {
	// No dot import, no type index: a bare Conn stays a local cascade
	// candidate and is never reported against the catalog.
	tree := loadTree(t, `package app

type Session struct {
	link Conn
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	session := fragmentByName(t, frags, "Session")
	assert.Empty(t, session.Problems)
	assert.Contains(t, session.RefFQNs, "demo.example/app.Conn")
}

func TestDetectFileTypeIndexWinsOverHeuristics(t *testing.T) {
	// The load-time index pins the bare name to the retired namespace
	// even though no import corroborates it.
	tree := loadTree(t, `package app

type Sheet struct {
	c Canvas
}
`)
	idx := m.TypeIndex{"Canvas": {"oldcorp.example/sdk/legacygfx.Canvas"}}
	frags := detect(t, tree, idx, m.SourceFile{})

	sheet := fragmentByName(t, frags, "Sheet")
	require.Len(t, sheet.Problems, 1)
	assert.Equal(t, "oldcorp.example/sdk/legacygfx.Canvas", sheet.Problems[0].Target)
}

func TestDetectFileMethodFragmentJoinsReceiver(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/legacygfx"

func (p *Panel) Redraw(c legacygfx.Canvas) {}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	panel := fragmentByName(t, frags, "Panel")
	assert.Equal(t, m.UnitType, panel.Kind)
	assert.False(t, panel.HasDecl)
	require.Len(t, panel.Problems, 1)
	assert.Equal(t, m.SeverityHigh, panel.Problems[0].Severity)
}

func TestDetectFileCollectsCascadeReferences(t *testing.T) {
	tree := loadTree(t, `package app

type Board struct {
	tiles []Tile
}

func Render() {
	prepare()
	_ = Board{}
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	board := fragmentByName(t, frags, "Board")
	assert.Contains(t, board.RefFQNs, "demo.example/app.Tile")

	render := fragmentByName(t, frags, "Render")
	assert.Contains(t, render.RefFQNs, "demo.example/app.prepare")
	assert.Contains(t, render.RefFQNs, "demo.example/app.Board")
	assert.NotContains(t, render.RefFQNs, "demo.example/app.Render")
}

func TestDetectFileProtection(t *testing.T) {
	t.Run("generated files are protected", func(t *testing.T) {
		tree := loadTree(t, `package app

type Stub struct{}
`)
		frags := detect(t, tree, nil, m.SourceFile{Generated: true})
		assert.True(t, fragmentByName(t, frags, "Stub").Protected)
	})

	t.Run("main entrypoint is protected", func(t *testing.T) {
		tree := loadTree(t, `package main

func main() {}
`)
		frags := detect(t, tree, nil, m.SourceFile{})
		assert.True(t, fragmentByName(t, frags, "main").Protected)
	})

	t.Run("catalog-protected unit", func(t *testing.T) {
		tree := loadTree(t, `package app

type Anchor struct{}
`)
		frags := detect(t, tree, nil, m.SourceFile{})
		assert.True(t, fragmentByName(t, frags, "Anchor").Protected)
	})

	t.Run("embedding a protected base protects the wrapper", func(t *testing.T) {
		tree := loadTree(t, `package app

type Pinned struct {
	Anchor
}

type Loose struct {
	a Anchor
}
`)
		idx := m.TypeIndex{"Anchor": {"demo.example/app.Anchor"}}
		frags := detect(t, tree, idx, m.SourceFile{})
		assert.True(t, fragmentByName(t, frags, "Pinned").Protected)
		assert.False(t, fragmentByName(t, frags, "Loose").Protected)
	})
}

func TestDetectFileValueBlock(t *testing.T) {
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/legacygfx"

var defaultSurface legacygfx.Canvas
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	val := fragmentByName(t, frags, "defaultSurface")
	assert.Equal(t, m.UnitValue, val.Kind)
	require.Len(t, val.Problems, 1)
	assert.Equal(t, m.SeverityHigh, val.Problems[0].Severity)
}

func TestDetectFileRenamedTypesAreNotProblems(t *testing.T) {
	// A clean qualified rename was already rewritten; whatever survives
	// detection as ui.Widget resolves to the renamed entry but only the
	// ambiguous-bare case reports. Qualified hits to renamed entries
	// would have been rewritten, so detection reports nothing for them.
	tree := loadTree(t, `package app

import "oldcorp.example/sdk/auth"

type Settings struct {
	session auth.Session
	retries int
}
`)
	frags := detect(t, tree, nil, m.SourceFile{})

	settings := fragmentByName(t, frags, "Settings")
	require.Len(t, settings.Problems, 1)
	assert.Equal(t, "oldcorp.example/sdk/auth.Session", settings.Problems[0].Target)
}

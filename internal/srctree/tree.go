// Package srctree holds the per-file working tree the migration pipeline
// edits. A Tree is an immutable parse of one file at one generation;
// applying a batch of edits produces the next generation. Edits remember
// the generation they were computed against, and Apply refuses batches
// computed against any other generation, so no stage can act on nodes
// from a tree that no longer exists.
package srctree

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"

	m "sunset.dev/pkg/sunset/internal/model"
)

var (
	// ErrStaleEdit reports an edit computed against a superseded
	// generation.
	ErrStaleEdit = errors.New("edit computed against a stale generation")
	// ErrOverlap reports two edits in one batch touching the same bytes.
	ErrOverlap = errors.New("overlapping edits in one batch")
)

// Tree is one file at one generation. All fields are read-only; Apply
// returns a fresh Tree and leaves the receiver untouched.
type Tree struct {
	Path m.Path
	Kind m.FileKind
	Gen  int
	Src  []byte
	Fset *token.FileSet
	File *ast.File
}

// Load parses src as the generation-zero tree for path.
func Load(path m.Path, src []byte) (*Tree, error) {
	kind := m.KindSource
	if strings.HasSuffix(string(path), "_test.go") {
		kind = m.KindTest
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, string(path), src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &Tree{Path: path, Kind: kind, Src: src, Fset: fset, File: file}, nil
}

// Apply splices a batch of edits into the tree and reparses, producing
// the next generation. Every edit must carry the receiver's generation.
// An empty batch returns the receiver unchanged.
func (t *Tree) Apply(edits []Edit) (*Tree, error) {
	if len(edits) == 0 {
		return t, nil
	}
	batch := make([]Edit, len(edits))
	copy(batch, edits)
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Lo < batch[j].Lo })

	for i, e := range batch {
		if e.Gen != t.Gen {
			return nil, fmt.Errorf("%s: edit [%d,%d) gen %d against tree gen %d: %w",
				t.Path, e.Lo, e.Hi, e.Gen, t.Gen, ErrStaleEdit)
		}
		if e.Lo < 0 || e.Hi > len(t.Src) || e.Lo > e.Hi {
			return nil, fmt.Errorf("%s: edit [%d,%d) outside source of %d bytes",
				t.Path, e.Lo, e.Hi, len(t.Src))
		}
		if i > 0 && e.Lo < batch[i-1].Hi {
			return nil, fmt.Errorf("%s: edits [%d,%d) and [%d,%d): %w",
				t.Path, batch[i-1].Lo, batch[i-1].Hi, e.Lo, e.Hi, ErrOverlap)
		}
	}

	var out bytes.Buffer
	last := 0
	for _, e := range batch {
		out.Write(t.Src[last:e.Lo])
		out.WriteString(e.Text)
		last = e.Hi
	}
	out.Write(t.Src[last:])

	src := out.Bytes()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, string(t.Path), src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("reparsing %s after %d edits: %w", t.Path, len(batch), err)
	}
	return &Tree{Path: t.Path, Kind: t.Kind, Gen: t.Gen + 1, Src: src, Fset: fset, File: file}, nil
}

// Offset converts a token position to a byte offset in Src.
func (t *Tree) Offset(pos token.Pos) int {
	return t.Fset.Position(pos).Offset
}

// Line returns the 1-based line of pos.
func (t *Tree) Line(pos token.Pos) int {
	return t.Fset.Position(pos).Line
}

// Span returns the byte range covered by a node.
func (t *Tree) Span(n ast.Node) (lo, hi int) {
	return t.Offset(n.Pos()), t.Offset(n.End())
}

// DeclSpan returns the byte range of a top-level declaration including
// its doc comment and the trailing newline, so replacing it leaves no
// orphaned lines behind.
func (t *Tree) DeclSpan(d ast.Decl) (lo, hi int) {
	lo, hi = t.Span(d)
	if doc := declDoc(d); doc != nil {
		if p := t.Offset(doc.Pos()); p < lo {
			lo = p
		}
	}
	for hi < len(t.Src) && (t.Src[hi] == ' ' || t.Src[hi] == '\t') {
		hi++
	}
	if hi < len(t.Src) && t.Src[hi] == '\n' {
		hi++
	}
	return lo, hi
}

// Text returns the source text of a byte range.
func (t *Tree) Text(lo, hi int) string {
	return string(t.Src[lo:hi])
}

// Replace builds an edit substituting text for the node's span, stamped
// with the tree's generation.
func (t *Tree) Replace(n ast.Node, text string) Edit {
	lo, hi := t.Span(n)
	return Edit{Gen: t.Gen, Lo: lo, Hi: hi, Text: text}
}

func declDoc(d ast.Decl) *ast.CommentGroup {
	switch d := d.(type) {
	case *ast.GenDecl:
		return d.Doc
	case *ast.FuncDecl:
		return d.Doc
	}
	return nil
}

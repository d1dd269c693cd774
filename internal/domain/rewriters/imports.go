// Package rewriters provides the per-stage source rewrites of the
// migration pipeline. Each planner inspects one working-tree generation
// and returns the edits for the next one; applying them is the caller's
// job.
package rewriters

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"sunset.dev/pkg/sunset/internal/catalog"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

// PlanImports rewrites retired import paths in one pass: renamed
// namespaces get their successor path (alias preserved), namespaces
// whose every type was retired without replacement are removed. All
// edits target the tree's current generation.
func PlanImports(tree *srctree.Tree, cat *catalog.Catalog) ([]srctree.Edit, []m.ImportChange) {
	var edits []srctree.Edit
	var changes []m.ImportChange

	for _, decl := range tree.File.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			continue
		}
		removed := 0
		var declEdits []srctree.Edit
		for _, spec := range gd.Specs {
			imp := spec.(*ast.ImportSpec)
			path := importPath(imp)
			action, target := cat.NamespaceAction(path)
			switch action {
			case catalog.Rename:
				lo, hi := tree.Span(imp.Path)
				declEdits = append(declEdits, srctree.Edit{
					Gen: tree.Gen, Lo: lo, Hi: hi, Text: strconv.Quote(target),
				})
				changes = append(changes, m.ImportChange{
					File: tree.Path, Old: path, New: target, Alias: importAlias(imp),
				})
			case catalog.Remove:
				declEdits = append(declEdits, specRemoveEdit(tree, imp))
				changes = append(changes, m.ImportChange{
					File: tree.Path, Old: path, Alias: importAlias(imp),
				})
				removed++
			}
		}
		// Dropping every spec leaves an empty import decl behind, so
		// remove the whole declaration instead.
		if removed == len(gd.Specs) && removed > 0 {
			edits = append(edits, declRemoveEdit(tree, gd))
			continue
		}
		edits = append(edits, declEdits...)
	}
	return edits, changes
}

// AddImports inserts the given paths into the file's import block,
// skipping paths already present. Used after type rewriting pulls a
// successor namespace into a file that never imported it.
func AddImports(tree *srctree.Tree, paths []string) []srctree.Edit {
	have := make(map[string]bool)
	for _, imp := range tree.File.Imports {
		have[importPath(imp)] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, p := range paths {
		if p == "" || have[p] || seen[p] {
			continue
		}
		seen[p] = true
		missing = append(missing, p)
	}
	if len(missing) == 0 {
		return nil
	}

	for _, decl := range tree.File.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			continue
		}
		if gd.Lparen.IsValid() {
			var b strings.Builder
			for _, p := range missing {
				b.WriteString("\t")
				b.WriteString(strconv.Quote(p))
				b.WriteString("\n")
			}
			return []srctree.Edit{srctree.Insert(tree, tree.Offset(gd.Rparen), b.String())}
		}
		// Single ungrouped import: append sibling import decls.
		_, hi := tree.Span(gd)
		var b strings.Builder
		for _, p := range missing {
			b.WriteString("\nimport ")
			b.WriteString(strconv.Quote(p))
		}
		return []srctree.Edit{srctree.Insert(tree, hi, b.String())}
	}

	// No import block at all: open one after the package clause.
	var b strings.Builder
	b.WriteString("\n\nimport (\n")
	for _, p := range missing {
		b.WriteString("\t")
		b.WriteString(strconv.Quote(p))
		b.WriteString("\n")
	}
	b.WriteString(")")
	return []srctree.Edit{srctree.Insert(tree, tree.Offset(tree.File.Name.End()), b.String())}
}

// Imports snapshots the file's import specs as records, used to keep the
// as-loaded import list around after rewriting.
func Imports(tree *srctree.Tree) []m.ImportRecord {
	var out []m.ImportRecord
	for _, imp := range tree.File.Imports {
		out = append(out, m.ImportRecord{Alias: importAlias(imp), Path: importPath(imp)})
	}
	return out
}

// importPath returns the unquoted path of an import spec.
func importPath(imp *ast.ImportSpec) string {
	path, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return ""
	}
	return path
}

// importAlias returns the explicit local name of an import spec, "" when
// it has none.
func importAlias(imp *ast.ImportSpec) string {
	if imp.Name == nil {
		return ""
	}
	return imp.Name.Name
}

// specRemoveEdit deletes one import spec with its line, including any
// doc comment above it and the trailing comment after it.
func specRemoveEdit(tree *srctree.Tree, imp *ast.ImportSpec) srctree.Edit {
	lo, hi := tree.Span(imp)
	if imp.Doc != nil {
		if p := tree.Offset(imp.Doc.Pos()); p < lo {
			lo = p
		}
	}
	if imp.Comment != nil {
		if p := tree.Offset(imp.Comment.End()); p > hi {
			hi = p
		}
	}
	lo, hi = consumeGroupSeparator(tree, lineStart(tree, lo), lineEnd(tree, hi))
	return srctree.Edit{Gen: tree.Gen, Lo: lo, Hi: hi, Text: ""}
}

// consumeGroupSeparator widens a spec removal when the spec sat alone in
// a blank-line-separated import group, so its separator line does not
// survive it.
func consumeGroupSeparator(tree *srctree.Tree, lo, hi int) (int, int) {
	blankBefore := lo >= 2 && tree.Src[lo-1] == '\n' && tree.Src[lo-2] == '\n'
	openBefore := lo >= 2 && tree.Src[lo-1] == '\n' && tree.Src[lo-2] == '('

	j := hi
	for j < len(tree.Src) && (tree.Src[j] == ' ' || tree.Src[j] == '\t') {
		j++
	}
	blankAfter := j < len(tree.Src) && tree.Src[j] == '\n'
	closesGroup := j < len(tree.Src) && tree.Src[j] == ')'

	switch {
	case blankBefore && (blankAfter || closesGroup):
		lo--
	case openBefore && blankAfter:
		hi = j + 1
	}
	return lo, hi
}

// declRemoveEdit deletes a whole declaration with its doc comment.
func declRemoveEdit(tree *srctree.Tree, decl ast.Decl) srctree.Edit {
	lo, hi := tree.DeclSpan(decl)
	return srctree.Edit{Gen: tree.Gen, Lo: lo, Hi: hi, Text: ""}
}

// lineStart walks lo back across leading blanks to the start of its line.
func lineStart(tree *srctree.Tree, lo int) int {
	for lo > 0 && (tree.Src[lo-1] == ' ' || tree.Src[lo-1] == '\t') {
		lo--
	}
	return lo
}

// lineEnd advances hi past trailing blanks and one newline.
func lineEnd(tree *srctree.Tree, hi int) int {
	for hi < len(tree.Src) && (tree.Src[hi] == ' ' || tree.Src[hi] == '\t') {
		hi++
	}
	if hi < len(tree.Src) && tree.Src[hi] == '\n' {
		hi++
	}
	return hi
}

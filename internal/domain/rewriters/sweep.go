package rewriters

import (
	"go/ast"
	"go/token"

	"sunset.dev/pkg/sunset/internal/srctree"
)

// PlanUnusedImports removes imports no longer referenced by live code.
// Neutralizing a declaration turns its source into a comment, so the
// imports it used disappear from the parse; without this sweep the file
// would stop compiling. Blank imports, "C", and dot imports are kept:
// the first two are used for effect, the last cannot be attributed.
func PlanUnusedImports(tree *srctree.Tree) []srctree.Edit {
	used := qualifierUses(tree.File)

	var edits []srctree.Edit
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
			alias := importAlias(imp)
			if alias == "_" || alias == "." || path == "C" {
				continue
			}
			local := alias
			if local == "" {
				local = pathBase(path)
			}
			if used[local] {
				continue
			}
			declEdits = append(declEdits, specRemoveEdit(tree, imp))
			removed++
		}
		if removed == len(gd.Specs) && removed > 0 {
			edits = append(edits, declRemoveEdit(tree, gd))
			continue
		}
		edits = append(edits, declEdits...)
	}
	return edits
}

// qualifierUses collects every identifier appearing as a package
// qualifier anywhere outside the import block.
func qualifierUses(file *ast.File) map[string]bool {
	used := make(map[string]bool)
	for _, decl := range file.Decls {
		if gd, ok := decl.(*ast.GenDecl); ok && gd.Tok == token.IMPORT {
			continue
		}
		ast.Inspect(decl, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok {
				if q, ok := sel.X.(*ast.Ident); ok {
					used[q.Name] = true
				}
			}
			return true
		})
	}
	return used
}

package rewriters

import (
	"go/ast"
	"go/token"
	"regexp"

	"sunset.dev/pkg/sunset/internal/catalog"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

// TypeRefPlan is the outcome of planning type-reference rewrites for one
// file generation.
type TypeRefPlan struct {
	Edits    []srctree.Edit
	Rewrites []m.TypeRewrite
	Skipped  []m.SkippedRef
	// NeedImports lists successor namespaces the rewrites now reference;
	// the caller adds whichever are missing from the tree.
	NeedImports []string
}

// PlanTypeRefs substitutes references to renamed types. Qualified
// references rewrite when the qualifier's original import path plus the
// selected name match a renamed entry exactly. Unqualified references
// rewrite only when the short name has exactly one renamed entry in the
// whole catalog and the file's dot imports corroborate it; an ambiguous
// short name is skipped and reported, never guessed.
//
// orig is the file's as-loaded import list. The import stage has usually
// run by now, so the live tree no longer holds the old paths.
func PlanTypeRefs(tree *srctree.Tree, cat *catalog.Catalog, orig []m.ImportRecord) TypeRefPlan {
	p := &typeRefPlanner{
		tree:     tree,
		cat:      cat,
		orig:     orig,
		declared: declaredTypeNames(tree.File),
		handled:  make(map[*ast.Ident]bool),
	}
	for _, imp := range orig {
		if imp.Alias == "." {
			p.dotted = append(p.dotted, imp.Path)
		}
	}

	ast.Inspect(tree.File, p.visit)
	return p.plan
}

type typeRefPlanner struct {
	tree     *srctree.Tree
	cat      *catalog.Catalog
	orig     []m.ImportRecord
	dotted   []string
	declared map[string]bool
	handled  map[*ast.Ident]bool
	plan     TypeRefPlan
}

func (p *typeRefPlanner) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.GenDecl:
		if n.Tok == token.IMPORT {
			return false
		}
	case *ast.SelectorExpr:
		if q, ok := n.X.(*ast.Ident); ok {
			p.handled[q] = true
			p.handled[n.Sel] = true
			p.qualifiedRef(n, q)
			return false
		}
	case *ast.TypeSpec:
		p.typeExpr(n.Type)
		if n.TypeParams != nil {
			for _, f := range n.TypeParams.List {
				p.typeExpr(f.Type)
			}
		}
	case *ast.ValueSpec:
		p.typeExpr(n.Type)
	case *ast.CompositeLit:
		p.typeExpr(n.Type)
	case *ast.TypeAssertExpr:
		p.typeExpr(n.Type)
	case *ast.FuncDecl:
		p.typeExpr(n.Type)
	}
	return true
}

// qualifiedRef handles q.Name. The qualifier resolves through the
// as-loaded imports; the pair must match a catalog entry exactly.
func (p *typeRefPlanner) qualifiedRef(sel *ast.SelectorExpr, q *ast.Ident) {
	oldPath, alias, ok := p.resolveQualifier(q.Name)
	if !ok {
		return
	}
	entry, found := p.cat.LookupQualified(oldPath, sel.Sel.Name)
	if found && entry.Category == m.CategoryRenamed && entry.AppliesTo(p.tree.Kind) {
		newNS := entry.Replacement.Namespace
		qual := alias
		if qual == "" {
			qual = pathBase(newNS)
		}
		lo, hi := p.tree.Span(sel)
		p.plan.Edits = append(p.plan.Edits, srctree.Edit{
			Gen: p.tree.Gen, Lo: lo, Hi: hi, Text: qual + "." + entry.Replacement.Name,
		})
		p.plan.Rewrites = append(p.plan.Rewrites, m.TypeRewrite{
			File: p.tree.Path, Old: entry.OldFQN(), New: entry.NewFQN(), Line: p.tree.Line(sel.Pos()),
		})
		p.plan.NeedImports = append(p.plan.NeedImports, newNS)
		return
	}
	if found {
		// Retired or manual: the detector owns it.
		return
	}

	// No per-type entry, but a namespace-level rename may have changed
	// the package's base name out from under an unaliased qualifier.
	if alias != "" {
		return
	}
	if action, target := p.cat.NamespaceAction(oldPath); action == catalog.Rename && pathBase(target) != q.Name {
		lo, hi := p.tree.Span(q)
		p.plan.Edits = append(p.plan.Edits, srctree.Edit{
			Gen: p.tree.Gen, Lo: lo, Hi: hi, Text: pathBase(target),
		})
		p.plan.Rewrites = append(p.plan.Rewrites, m.TypeRewrite{
			File: p.tree.Path,
			Old:  m.FQN(oldPath, sel.Sel.Name),
			New:  m.FQN(target, sel.Sel.Name),
			Line: p.tree.Line(sel.Pos()),
		})
	}
}

// typeExpr walks a type expression recording bare identifiers. Qualified
// parts are left to qualifiedRef.
func (p *typeRefPlanner) typeExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case nil:
	case *ast.Ident:
		p.bareRef(e)
	case *ast.SelectorExpr:
	case *ast.StarExpr:
		p.typeExpr(e.X)
	case *ast.ParenExpr:
		p.typeExpr(e.X)
	case *ast.ArrayType:
		p.typeExpr(e.Elt)
	case *ast.Ellipsis:
		p.typeExpr(e.Elt)
	case *ast.MapType:
		p.typeExpr(e.Key)
		p.typeExpr(e.Value)
	case *ast.ChanType:
		p.typeExpr(e.Value)
	case *ast.IndexExpr:
		p.typeExpr(e.X)
		p.typeExpr(e.Index)
	case *ast.IndexListExpr:
		p.typeExpr(e.X)
		for _, ix := range e.Indices {
			p.typeExpr(ix)
		}
	case *ast.FuncType:
		p.fieldList(e.TypeParams)
		p.fieldList(e.Params)
		p.fieldList(e.Results)
	case *ast.StructType:
		p.fieldList(e.Fields)
	case *ast.InterfaceType:
		p.fieldList(e.Methods)
	}
}

func (p *typeRefPlanner) fieldList(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		p.typeExpr(f.Type)
	}
}

// bareRef handles an unqualified type identifier. It only ever fires for
// names reaching an old namespace through a dot import; everything else
// a bare name can mean is local to the package.
func (p *typeRefPlanner) bareRef(id *ast.Ident) {
	if p.handled[id] || p.declared[id.Name] || !ast.IsExported(id.Name) {
		return
	}
	p.handled[id] = true

	candidates := p.cat.LookupName(id.Name)
	if len(candidates) == 0 {
		return
	}
	corroborated := 0
	for _, c := range candidates {
		if p.dotImported(c.Namespace) {
			corroborated++
		}
	}
	if corroborated == 0 {
		return
	}
	entry, sole := p.cat.SoleRenamed(id.Name)
	if !sole {
		p.plan.Skipped = append(p.plan.Skipped, m.SkippedRef{
			File: p.tree.Path, Name: id.Name, Line: p.tree.Line(id.Pos()),
			Reason: "short name maps in more than one namespace",
		})
		return
	}
	if !p.dotImported(entry.Namespace) || !entry.AppliesTo(p.tree.Kind) {
		return
	}

	newNS := entry.Replacement.Namespace
	text := entry.Replacement.Name
	if !p.dotImported(newNS) && newNS != entry.Namespace {
		text = pathBase(newNS) + "." + entry.Replacement.Name
		p.plan.NeedImports = append(p.plan.NeedImports, newNS)
	}
	lo, hi := p.tree.Span(id)
	p.plan.Edits = append(p.plan.Edits, srctree.Edit{Gen: p.tree.Gen, Lo: lo, Hi: hi, Text: text})
	p.plan.Rewrites = append(p.plan.Rewrites, m.TypeRewrite{
		File: p.tree.Path, Old: entry.OldFQN(), New: entry.NewFQN(), Line: p.tree.Line(id.Pos()),
	})
}

// resolveQualifier maps a selector qualifier to its as-loaded import
// path. Explicit aliases win; otherwise the path's base name must match.
func (p *typeRefPlanner) resolveQualifier(q string) (path, alias string, ok bool) {
	for _, imp := range p.orig {
		if imp.Alias == q {
			return imp.Path, imp.Alias, true
		}
	}
	for _, imp := range p.orig {
		if imp.Alias == "" && pathBase(imp.Path) == q {
			return imp.Path, "", true
		}
	}
	return "", "", false
}

func (p *typeRefPlanner) dotImported(ns string) bool {
	for _, d := range p.dotted {
		if d == ns {
			return true
		}
	}
	return false
}

// declaredTypeNames collects the file's own type declarations; a bare
// reference to one of those never means an imported type.
func declaredTypeNames(file *ast.File) map[string]bool {
	out := make(map[string]bool)
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			if ts, ok := spec.(*ast.TypeSpec); ok {
				out[ts.Name.Name] = true
			}
		}
	}
	return out
}

var versionElement = regexp.MustCompile(`^v[0-9]+$`)

// pathBase guesses the package name of an import path: the last element,
// or the one before a major-version suffix.
func pathBase(path string) string {
	elems := splitPath(path)
	if len(elems) == 0 {
		return path
	}
	last := elems[len(elems)-1]
	if versionElement.MatchString(last) && len(elems) > 1 {
		return elems[len(elems)-2]
	}
	return last
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

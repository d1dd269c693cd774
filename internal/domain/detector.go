package domain

import (
	"go/ast"
	"go/token"
	"sort"
	"strings"

	"sunset.dev/pkg/sunset/internal/catalog"
	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

// typeRef is one reference collected under a declaration unit.
type typeRef struct {
	text     string // source text: "q.Name" or "Name"
	qual     string // qualifier, "" for bare references
	name     string
	line     int
	embedded bool // embedded field / base position
}

// DetectFile analyzes one file's current tree and returns a fragment per
// top-level declaration unit: the unit's identity, the retired-API
// problems found under it, and the references feeding the dependency
// cascade. Pure analysis; the tree is not touched.
//
// orig is the file's as-loaded import list. Detection runs after the
// import rewriter, so corroborating against the live tree would erase
// exactly the evidence the short-name fallback needs.
func DetectFile(tree *srctree.Tree, cat *catalog.Catalog, orig []m.ImportRecord, idx m.TypeIndex, file m.SourceFile) []m.Fragment {
	d := &fileDetector{tree: tree, cat: cat, orig: orig, idx: idx, file: file}
	for _, imp := range orig {
		if imp.Alias == "." {
			d.dotted = append(d.dotted, imp.Path)
		}
	}

	var frags []m.Fragment
	for _, decl := range tree.File.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			switch decl.Tok {
			case token.TYPE:
				for _, spec := range decl.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok {
						frags = append(frags, d.typeFragment(ts))
					}
				}
			case token.VAR, token.CONST:
				if frag, ok := d.valueFragment(decl); ok {
					frags = append(frags, frag)
				}
			}
		case *ast.FuncDecl:
			frags = append(frags, d.funcFragment(decl))
		}
	}
	return frags
}

type fileDetector struct {
	tree   *srctree.Tree
	cat    *catalog.Catalog
	orig   []m.ImportRecord
	idx    m.TypeIndex
	file   m.SourceFile
	dotted []string
}

func (d *fileDetector) typeFragment(ts *ast.TypeSpec) m.Fragment {
	frag := d.newFragment(ts.Name.Name, m.UnitType, true)

	var refs []typeRef
	switch underlying := ts.Type.(type) {
	case *ast.StructType:
		refs = append(refs, d.structRefs(underlying)...)
	case *ast.InterfaceType:
		refs = append(refs, d.interfaceRefs(underlying)...)
	default:
		// A named type over another type is as bound to it as an
		// embedded field is.
		refs = append(refs, markEmbedded(d.typePositionRefs(ts.Type))...)
	}
	if ts.TypeParams != nil {
		for _, f := range ts.TypeParams.List {
			refs = append(refs, d.typePositionRefs(f.Type)...)
		}
	}
	d.fill(&frag, refs)
	return frag
}

func (d *fileDetector) funcFragment(fd *ast.FuncDecl) m.Fragment {
	var frag m.Fragment
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		// Method set fragment: belongs to the receiver's type, which may
		// be declared in another file.
		frag = d.newFragment(receiverTypeName(fd.Recv.List[0].Type), m.UnitType, false)
	} else {
		frag = d.newFragment(fd.Name.Name, m.UnitFunc, true)
		if fd.Name.Name == "main" && d.tree.File.Name.Name == "main" {
			frag.Protected = true
		}
	}

	refs := d.fieldListRefs(fd.Type.Params)
	refs = append(refs, d.fieldListRefs(fd.Type.Results)...)
	if fd.Recv != nil {
		refs = append(refs, d.fieldListRefs(fd.Recv)...)
	}
	if fd.Body != nil {
		refs = append(refs, d.bodyRefs(fd.Body)...)
	}
	d.fill(&frag, refs)
	return frag
}

func (d *fileDetector) valueFragment(gd *ast.GenDecl) (m.Fragment, bool) {
	name := ""
	var refs []typeRef
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if name == "" && len(vs.Names) > 0 {
			name = vs.Names[0].Name
		}
		refs = append(refs, d.typePositionRefs(vs.Type)...)
		for _, v := range vs.Values {
			refs = append(refs, d.bodyRefs(v)...)
		}
	}
	if name == "" || name == "_" {
		// Blank assignments carry references worth reporting, but they
		// are not a unit anything can depend on; attribute them to the
		// declaration position.
		name = "_"
	}
	frag := d.newFragment(name, m.UnitValue, true)
	d.fill(&frag, refs)
	return frag, len(gd.Specs) > 0
}

func (d *fileDetector) newFragment(name string, kind m.UnitKind, hasDecl bool) m.Fragment {
	return m.Fragment{
		Name:      name,
		FQN:       m.FQN(d.file.PkgPath, name),
		Kind:      kind,
		File:      d.tree.Path,
		FileKind:  d.tree.Kind,
		HasDecl:   hasDecl,
		Protected: d.file.Generated,
	}
}

// fill resolves the collected references into deduplicated problems and
// the cascade reference set.
func (d *fileDetector) fill(frag *m.Fragment, refs []typeRef) {
	problems := make(map[string]*m.TypeProblem)
	seenRef := make(map[string]bool)

	for _, ref := range refs {
		for _, hit := range d.resolve(ref) {
			if hit.entry != nil {
				d.recordProblem(frag, problems, ref, *hit.entry)
			}
			if hit.fqn != "" && !seenRef[hit.fqn] {
				seenRef[hit.fqn] = true
				frag.RefFQNs = append(frag.RefFQNs, hit.fqn)
			}
			if hit.entry == nil && d.cat.Protected(hit.fqn) && ref.embedded {
				frag.Protected = true
			}
		}
	}

	if d.cat.Protected(frag.FQN) {
		frag.Protected = true
	}
	targets := make([]string, 0, len(problems))
	for target := range problems {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		frag.Problems = append(frag.Problems, *problems[target])
	}
}

func (d *fileDetector) recordProblem(frag *m.Fragment, problems map[string]*m.TypeProblem, ref typeRef, entry m.Mapping) {
	if !entry.AppliesTo(d.tree.Kind) {
		return
	}
	var severity m.Severity
	note := entry.Note
	switch entry.Category {
	case m.CategoryNoEquivalent:
		severity = m.SeverityHigh
		if ref.embedded {
			severity = m.SeverityCritical
		}
	case m.CategoryManualConversion:
		severity = m.SeverityMedium
	case m.CategoryRenamed:
		// Renamed entries surface here only when the rewriter had to
		// skip an ambiguous short name.
		severity = m.SeverityMedium
		note = "short name is ambiguous; rename to " + entry.NewFQN() + " by hand"
	default:
		return
	}

	target := entry.OldFQN()
	if existing, ok := problems[target]; ok {
		// One problem per referenced type; an embedded sighting
		// escalates what a body reference already reported.
		if severity.Rank() > existing.Severity.Rank() {
			existing.Severity = severity
			existing.ViaEmbedding = existing.ViaEmbedding || ref.embedded
		}
		return
	}
	problems[target] = &m.TypeProblem{
		Class:        frag.FQN,
		File:         d.tree.Path,
		Target:       target,
		Category:     entry.Category,
		Severity:     severity,
		Note:         note,
		ViaEmbedding: ref.embedded,
		Quarantine:   entry.Quarantine,
	}

	// Protection on the embedded base keeps the declaration active even
	// when the base itself is quarantined.
	if ref.embedded && d.cat.Protected(target) {
		frag.Protected = true
	}
}

// resolved is one interpretation of a reference: the fully qualified
// name it denotes and, when the catalog knows it, the matching entry.
type resolved struct {
	fqn   string
	entry *m.Mapping
}

// resolve maps a reference to candidate fully qualified names. Semantic
// resolution through the load-time type index wins; the import
// corroboration heuristic is the fallback; a bare name nothing
// corroborates is not reported at all.
func (d *fileDetector) resolve(ref typeRef) []resolved {
	if fqns, ok := d.idx[ref.text]; ok && len(fqns) > 0 {
		out := make([]resolved, 0, len(fqns))
		for _, fqn := range fqns {
			out = append(out, resolved{fqn: fqn, entry: d.catalogEntry(fqn)})
		}
		return out
	}

	if ref.qual != "" {
		ns, ok := d.resolveQualifier(ref.qual)
		if !ok {
			return nil
		}
		fqn := m.FQN(ns, ref.name)
		return []resolved{{fqn: fqn, entry: d.catalogEntry(fqn)}}
	}

	// Bare reference. Local package units are cascade candidates; the
	// catalog is consulted only when a dot import corroborates an old
	// namespace for this short name.
	out := []resolved{{fqn: m.FQN(d.file.PkgPath, ref.name)}}
	for _, cand := range d.cat.LookupName(ref.name) {
		if d.dotImported(cand.Namespace) {
			e := cand
			out = append(out, resolved{fqn: cand.OldFQN(), entry: &e})
		}
	}
	return out
}

// catalogEntry finds the catalog entry for a fully qualified name, by
// exact namespace+name match or by dotted-suffix match for index entries
// carrying vendored path prefixes.
func (d *fileDetector) catalogEntry(fqn string) *m.Mapping {
	dot := strings.LastIndex(fqn, ".")
	if dot < 0 {
		return nil
	}
	ns, name := fqn[:dot], fqn[dot+1:]
	if e, ok := d.cat.LookupQualified(ns, name); ok {
		return &e
	}
	for _, cand := range d.cat.LookupName(name) {
		if strings.HasSuffix(ns, "/"+cand.Namespace) {
			e := cand
			return &e
		}
	}
	return nil
}

func (d *fileDetector) resolveQualifier(q string) (string, bool) {
	for _, imp := range d.orig {
		if imp.Alias == q {
			return imp.Path, true
		}
	}
	for _, imp := range d.orig {
		if imp.Alias == "" && pathTail(imp.Path) == q {
			return imp.Path, true
		}
	}
	return "", false
}

func (d *fileDetector) dotImported(ns string) bool {
	for _, p := range d.dotted {
		if p == ns {
			return true
		}
	}
	return false
}

// structRefs walks a struct body: embedded fields mark their reference
// as base-position, named fields contribute ordinary type references.
func (d *fileDetector) structRefs(st *ast.StructType) []typeRef {
	var refs []typeRef
	for _, f := range st.Fields.List {
		fieldRefs := d.typePositionRefs(f.Type)
		if len(f.Names) == 0 {
			fieldRefs = markEmbedded(fieldRefs)
		}
		refs = append(refs, fieldRefs...)
	}
	return refs
}

func (d *fileDetector) interfaceRefs(it *ast.InterfaceType) []typeRef {
	var refs []typeRef
	for _, f := range it.Methods.List {
		fieldRefs := d.typePositionRefs(f.Type)
		if len(f.Names) == 0 {
			fieldRefs = markEmbedded(fieldRefs)
		}
		refs = append(refs, fieldRefs...)
	}
	return refs
}

func (d *fileDetector) fieldListRefs(fl *ast.FieldList) []typeRef {
	if fl == nil {
		return nil
	}
	var refs []typeRef
	for _, f := range fl.List {
		refs = append(refs, d.typePositionRefs(f.Type)...)
	}
	return refs
}

// typePositionRefs collects the named references inside one type
// expression.
func (d *fileDetector) typePositionRefs(expr ast.Expr) []typeRef {
	var refs []typeRef
	d.walkType(expr, &refs)
	return refs
}

func (d *fileDetector) walkType(expr ast.Expr, refs *[]typeRef) {
	switch e := expr.(type) {
	case nil:
	case *ast.Ident:
		if isPredeclared(e.Name) {
			return
		}
		*refs = append(*refs, typeRef{text: e.Name, name: e.Name, line: d.tree.Line(e.Pos())})
	case *ast.SelectorExpr:
		if q, ok := e.X.(*ast.Ident); ok {
			*refs = append(*refs, typeRef{
				text: q.Name + "." + e.Sel.Name,
				qual: q.Name, name: e.Sel.Name,
				line: d.tree.Line(e.Pos()),
			})
		}
	case *ast.StarExpr:
		d.walkType(e.X, refs)
	case *ast.ParenExpr:
		d.walkType(e.X, refs)
	case *ast.ArrayType:
		d.walkType(e.Elt, refs)
	case *ast.Ellipsis:
		d.walkType(e.Elt, refs)
	case *ast.MapType:
		d.walkType(e.Key, refs)
		d.walkType(e.Value, refs)
	case *ast.ChanType:
		d.walkType(e.Value, refs)
	case *ast.IndexExpr:
		d.walkType(e.X, refs)
		d.walkType(e.Index, refs)
	case *ast.IndexListExpr:
		d.walkType(e.X, refs)
		for _, ix := range e.Indices {
			d.walkType(ix, refs)
		}
	case *ast.FuncType:
		for _, fl := range []*ast.FieldList{e.TypeParams, e.Params, e.Results} {
			for _, r := range d.fieldListRefs(fl) {
				*refs = append(*refs, r)
			}
		}
	case *ast.StructType:
		*refs = append(*refs, d.structRefs(e)...)
	case *ast.InterfaceType:
		*refs = append(*refs, d.interfaceRefs(e)...)
	}
}

// bodyRefs collects references from executable code: qualified names,
// type positions reachable from expressions, and bare call targets.
// Bare value identifiers are deliberately not collected; without type
// information a local variable is indistinguishable from a package-level
// name, and a false cascade edge would neutralize healthy code.
func (d *fileDetector) bodyRefs(node ast.Node) []typeRef {
	var refs []typeRef
	seenSel := make(map[*ast.Ident]bool)
	ast.Inspect(node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			if q, ok := n.X.(*ast.Ident); ok {
				seenSel[q] = true
				seenSel[n.Sel] = true
				refs = append(refs, typeRef{
					text: q.Name + "." + n.Sel.Name,
					qual: q.Name, name: n.Sel.Name,
					line: d.tree.Line(n.Pos()),
				})
				return false
			}
		case *ast.CallExpr:
			if id, ok := n.Fun.(*ast.Ident); ok && !seenSel[id] && !isPredeclared(id.Name) {
				refs = append(refs, typeRef{text: id.Name, name: id.Name, line: d.tree.Line(id.Pos())})
			}
		case *ast.CompositeLit:
			refs = append(refs, d.typePositionRefs(n.Type)...)
		case *ast.TypeAssertExpr:
			refs = append(refs, d.typePositionRefs(n.Type)...)
		case *ast.ValueSpec:
			refs = append(refs, d.typePositionRefs(n.Type)...)
		case *ast.FuncLit:
			refs = append(refs, d.typePositionRefs(n.Type)...)
		}
		return true
	})
	return refs
}

func markEmbedded(refs []typeRef) []typeRef {
	for i := range refs {
		refs[i].embedded = true
	}
	return refs
}

func receiverTypeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return receiverTypeName(e.X)
	case *ast.IndexExpr:
		return receiverTypeName(e.X)
	case *ast.IndexListExpr:
		return receiverTypeName(e.X)
	}
	return ""
}

// pathTail returns the last element of an import path, the default
// package name guess for an unaliased import.
func pathTail(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

var predeclared = map[string]bool{
	"bool": true, "byte": true, "complex64": true, "complex128": true,
	"error": true, "float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "any": true, "comparable": true,
	"true": true, "false": true, "nil": true, "iota": true,
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
}

func isPredeclared(name string) bool {
	return predeclared[name]
}

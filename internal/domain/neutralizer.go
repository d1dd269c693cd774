package domain

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strings"

	m "sunset.dev/pkg/sunset/internal/model"
	"sunset.dev/pkg/sunset/internal/srctree"
)

// Unit is the merged view of one declaration unit: every fragment
// sharing a fully qualified name folded together, so a problem found in
// a method file and a base type found in the declaring file feed one
// decision.
type Unit struct {
	FQN       string
	Name      string
	Kind      m.UnitKind
	Protected bool
	Problems  []m.TypeProblem
	Files     []m.Path
	RefFQNs   []string
}

// Decision is the neutralizer's verdict for one unit.
type Decision struct {
	State   m.TypeState
	Reasons []string
	// Cascade is set when the unit was neutralized only for depending
	// on another neutralized unit.
	Cascade bool
}

// MergeFragments folds detection fragments into units keyed by FQN.
// Problems deduplicate by target across fragments; protection from any
// fragment protects the whole unit.
func MergeFragments(frags []m.Fragment) map[string]*Unit {
	units := make(map[string]*Unit)
	for _, frag := range frags {
		u, ok := units[frag.FQN]
		if !ok {
			u = &Unit{FQN: frag.FQN, Name: frag.Name, Kind: frag.Kind}
			units[frag.FQN] = u
		}
		u.Protected = u.Protected || frag.Protected
		u.Files = appendUniquePath(u.Files, frag.File)
		for _, p := range frag.Problems {
			u.mergeProblem(p)
		}
		for _, ref := range frag.RefFQNs {
			if ref != frag.FQN {
				u.RefFQNs = appendUnique(u.RefFQNs, ref)
			}
		}
	}
	return units
}

func (u *Unit) mergeProblem(p m.TypeProblem) {
	for i, have := range u.Problems {
		if have.Target != p.Target {
			continue
		}
		if p.Severity.Rank() > have.Severity.Rank() {
			u.Problems[i].Severity = p.Severity
			u.Problems[i].ViaEmbedding = have.ViaEmbedding || p.ViaEmbedding
		}
		u.Problems[i].Quarantine = have.Quarantine || p.Quarantine
		return
	}
	u.Problems = append(u.Problems, p)
}

// Decide runs the decision table over every unit. Quarantined problems
// neutralize, protection and non-quarantine problems warn, and warnOnly
// forces everything carrying a problem into the warned state.
func Decide(units map[string]*Unit, warnOnly bool) map[string]*Decision {
	decisions := make(map[string]*Decision, len(units))
	for fqn, u := range units {
		d := &Decision{State: m.StateActive}
		decisions[fqn] = d
		if len(u.Problems) == 0 {
			continue
		}
		for _, p := range u.Problems {
			d.Reasons = append(d.Reasons, problemReason(p))
		}
		switch {
		case warnOnly, u.Protected, !anyQuarantine(u.Problems):
			d.State = m.StateWarned
		default:
			d.State = m.StateNeutralized
		}
	}
	return decisions
}

func anyQuarantine(problems []m.TypeProblem) bool {
	for _, p := range problems {
		if p.Quarantine {
			return true
		}
	}
	return false
}

func problemReason(p m.TypeProblem) string {
	return fmt.Sprintf("[%s] %s: %s", p.Severity, p.Target, p.Note)
}

const (
	retiredHeader   = "// RETIRED BY SUNSET (do not re-enable by hand)"
	followUpMarker  = "// TODO(sunset): port this declaration to the replacement API, then delete this block."
	warnMarkPrefix  = "// SUNSET: "
	warnFollowUp    = "// SUNSET: review this declaration before dropping the retired SDK."
	retiredOpen     = "/* retired source:"
	retiredClose    = ":retired */"
	commentTermSafe = `*\/`
)

// PlanNeutralize computes one file's wrap and warn edits against its
// current tree generation. Units are re-located by declaration name in
// this generation; handles from earlier generations are never consulted.
// Units expected in the file but no longer present (already wrapped by a
// previous run) are returned as leftovers for the caller to log.
func PlanNeutralize(tree *srctree.Tree, pkgPath string, decisions map[string]*Decision) (edits []srctree.Edit, leftovers []string) {
	located := make(map[string]bool)

	for _, decl := range tree.File.Decls {
		// Grouped type declarations are handled spec by spec so one
		// retired member never drags its healthy siblings along.
		if gd, ok := decl.(*ast.GenDecl); ok && gd.Tok == token.TYPE && len(gd.Specs) > 1 {
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				fqn := m.FQN(pkgPath, ts.Name.Name)
				d, ok := decisions[fqn]
				if !ok || d.State == m.StateActive {
					continue
				}
				located[fqn] = true
				switch d.State {
				case m.StateNeutralized:
					edits = append(edits, neutralizeSpanEdit(tree, specSpan(tree, ts), d))
				case m.StateWarned:
					if e, ok := warnSpanEdit(tree, specSpan(tree, ts), specMarkerLines(ts), d); ok {
						edits = append(edits, e)
					}
				}
			}
			continue
		}
		for _, name := range declUnitNames(decl) {
			fqn := m.FQN(pkgPath, name)
			d, ok := decisions[fqn]
			if !ok || d.State == m.StateActive {
				continue
			}
			located[fqn] = true
			switch d.State {
			case m.StateNeutralized:
				edits = append(edits, neutralizeEdit(tree, decl, d))
			case m.StateWarned:
				if hasDeclName(decl, name) {
					if e, ok := warnEdit(tree, decl, d); ok {
						edits = append(edits, e)
					}
				}
			}
			break
		}
	}

	for fqn, d := range decisions {
		if d.State == m.StateNeutralized && !located[fqn] && strings.HasPrefix(fqn, pkgPath+".") {
			leftovers = append(leftovers, fqn)
		}
	}
	sort.Strings(leftovers)
	return edits, leftovers
}

// span is a byte range in one tree generation.
type span struct{ lo, hi int }

// specSpan covers one spec inside a grouped declaration, including its
// doc comment and trailing newline.
func specSpan(tree *srctree.Tree, ts *ast.TypeSpec) span {
	lo, hi := tree.Span(ts)
	if ts.Doc != nil {
		if p := tree.Offset(ts.Doc.Pos()); p < lo {
			lo = p
		}
	}
	if ts.Comment != nil {
		if p := tree.Offset(ts.Comment.End()); p > hi {
			hi = p
		}
	}
	for hi < len(tree.Src) && (tree.Src[hi] == ' ' || tree.Src[hi] == '\t') {
		hi++
	}
	if hi < len(tree.Src) && tree.Src[hi] == '\n' {
		hi++
	}
	return span{lo, hi}
}

func specMarkerLines(ts *ast.TypeSpec) map[string]bool {
	out := make(map[string]bool)
	if ts.Doc == nil {
		return out
	}
	for _, c := range ts.Doc.List {
		out[strings.TrimRight(c.Text, " \t")] = true
	}
	return out
}

// neutralizeEdit replaces a declaration with its inert block: the
// explanatory header, the follow-up marker, and the verbatim original
// text embedded in a single comment. Nested comment terminators in the
// original are defused so the block stays one well-formed comment.
func neutralizeEdit(tree *srctree.Tree, decl ast.Decl, d *Decision) srctree.Edit {
	lo, hi := tree.DeclSpan(decl)
	return neutralizeSpanEdit(tree, span{lo, hi}, d)
}

func neutralizeSpanEdit(tree *srctree.Tree, s span, d *Decision) srctree.Edit {
	lo, hi := s.lo, s.hi
	original := tree.Text(lo, hi)

	var b strings.Builder
	b.WriteString(retiredHeader)
	b.WriteString("\n")
	for _, reason := range d.Reasons {
		b.WriteString("// ")
		b.WriteString(reason)
		b.WriteString("\n")
	}
	b.WriteString(followUpMarker)
	b.WriteString("\n")
	b.WriteString(retiredOpen)
	b.WriteString("\n")
	b.WriteString(strings.ReplaceAll(original, "*/", commentTermSafe))
	if !strings.HasSuffix(original, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(retiredClose)
	b.WriteString("\n")

	return srctree.Edit{Gen: tree.Gen, Lo: lo, Hi: hi, Text: b.String()}
}

// warnEdit prepends marker lines to the declaration. Lines already
// present are not repeated, which keeps re-runs from stacking markers.
func warnEdit(tree *srctree.Tree, decl ast.Decl, d *Decision) (srctree.Edit, bool) {
	lo, hi := tree.DeclSpan(decl)
	return warnSpanEdit(tree, span{lo, hi}, existingMarkerLines(decl), d)
}

func warnSpanEdit(tree *srctree.Tree, s span, existing map[string]bool, d *Decision) (srctree.Edit, bool) {
	lo := s.lo

	var b strings.Builder
	for _, reason := range d.Reasons {
		line := warnMarkPrefix + reason
		if !existing[line] {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if b.Len() > 0 && !existing[warnFollowUp] {
		b.WriteString(warnFollowUp)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return srctree.Edit{}, false
	}
	return srctree.Insert(tree, lo, b.String()), true
}

func existingMarkerLines(decl ast.Decl) map[string]bool {
	out := make(map[string]bool)
	var doc *ast.CommentGroup
	switch decl := decl.(type) {
	case *ast.GenDecl:
		doc = decl.Doc
	case *ast.FuncDecl:
		doc = decl.Doc
	}
	if doc == nil {
		return out
	}
	for _, c := range doc.List {
		out[strings.TrimRight(c.Text, " \t")] = true
	}
	return out
}

// declUnitNames maps a top-level declaration to the unit names it
// belongs to, mirroring the detector's fragment naming.
func declUnitNames(decl ast.Decl) []string {
	switch decl := decl.(type) {
	case *ast.GenDecl:
		switch decl.Tok {
		case token.TYPE:
			var names []string
			for _, spec := range decl.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					names = append(names, ts.Name.Name)
				}
			}
			return names
		case token.VAR, token.CONST:
			for _, spec := range decl.Specs {
				if vs, ok := spec.(*ast.ValueSpec); ok && len(vs.Names) > 0 {
					return []string{vs.Names[0].Name}
				}
			}
		}
	case *ast.FuncDecl:
		if decl.Recv != nil && len(decl.Recv.List) > 0 {
			return []string{receiverTypeName(decl.Recv.List[0].Type)}
		}
		return []string{decl.Name.Name}
	}
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

func appendUniquePath(list []m.Path, p m.Path) []m.Path {
	for _, have := range list {
		if have == p {
			return list
		}
	}
	return append(list, p)
}

// hasDeclName reports whether the declaration is the unit's declaring
// fragment rather than a detached method. Warn markers go on the
// declaration itself; methods stay untouched.
func hasDeclName(decl ast.Decl, name string) bool {
	switch decl := decl.(type) {
	case *ast.GenDecl:
		return true
	case *ast.FuncDecl:
		return decl.Recv == nil && decl.Name.Name == name
	}
	return false
}

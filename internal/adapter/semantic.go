package adapter

import (
	"context"
	"go/ast"
	"go/types"
	"log/slog"

	"golang.org/x/tools/go/packages"

	m "sunset.dev/pkg/sunset/internal/model"
)

// SemanticAdapter loads type information for the scanned packages and
// turns it into per-file indexes mapping reference text to the fully
// qualified names the compiler resolved it to. The indexes are the
// first resolution tier of the analysis; when loading fails the
// analysis degrades to import corroboration, so errors here are soft.
type SemanticAdapter interface {
	// TypeIndexes type-checks every package under dir, test files
	// included, and returns one index per source file keyed by the
	// file's absolute path.
	TypeIndexes(ctx context.Context, dir string) (map[m.Path]m.TypeIndex, error)
}

// PackagesSemanticAdapter provides a concrete SemanticAdapter backed by
// golang.org/x/tools/go/packages.
type PackagesSemanticAdapter struct{}

// NewPackagesSemanticAdapter constructs a PackagesSemanticAdapter.
func NewPackagesSemanticAdapter() *PackagesSemanticAdapter {
	return &PackagesSemanticAdapter{}
}

// TypeIndexes implements SemanticAdapter. Packages with type errors
// still contribute whatever the checker managed to resolve.
func (a *PackagesSemanticAdapter) TypeIndexes(ctx context.Context, dir string) (map[m.Path]m.TypeIndex, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports,
		Tests: true,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, err
	}

	indexes := make(map[m.Path]m.TypeIndex)
	for _, pkg := range pkgs {
		for _, perr := range pkg.Errors {
			slog.Debug("type loading reported an error", "package", pkg.PkgPath, "error", perr.Msg)
		}
		if pkg.TypesInfo == nil {
			continue
		}
		for _, file := range pkg.Syntax {
			path := m.Path(pkg.Fset.Position(file.Package).Filename)
			idx := indexes[path]
			if idx == nil {
				idx = make(m.TypeIndex)
				indexes[path] = idx
			}
			indexFile(file, pkg.TypesInfo, idx)
		}
	}
	return indexes, nil
}

// indexFile records every package-level object the file references,
// keyed by the reference text as written: "qual.Name" for qualified
// references and the bare identifier for dot imports and same-package
// uses.
func indexFile(file *ast.File, info *types.Info, idx m.TypeIndex) {
	inSelector := make(map[*ast.Ident]bool)

	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		qual, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if _, isPkg := info.Uses[qual].(*types.PkgName); !isPkg {
			return true
		}
		inSelector[qual] = true
		inSelector[sel.Sel] = true
		if fqn, ok := objectFQN(info.Uses[sel.Sel]); ok {
			record(idx, qual.Name+"."+sel.Sel.Name, fqn)
		}
		return false
	})

	ast.Inspect(file, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok || inSelector[id] {
			return true
		}
		if fqn, ok := objectFQN(info.Uses[id]); ok {
			record(idx, id.Name, fqn)
		}
		return true
	})
}

// objectFQN returns the fully qualified name of a package-level object;
// locals, fields, and universe objects are excluded.
func objectFQN(obj types.Object) (string, bool) {
	if obj == nil || obj.Pkg() == nil {
		return "", false
	}
	switch obj.(type) {
	case *types.TypeName, *types.Func, *types.Var, *types.Const:
	default:
		return "", false
	}
	if obj.Parent() != obj.Pkg().Scope() {
		return "", false
	}
	return m.FQN(obj.Pkg().Path(), obj.Name()), true
}

func record(idx m.TypeIndex, key, fqn string) {
	for _, have := range idx[key] {
		if have == fqn {
			return
		}
	}
	idx[key] = append(idx[key], fqn)
}

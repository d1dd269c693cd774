package model

// Path represents a file system path.
type Path string

// FileKind tells the pipeline how a file participates in the migration.
type FileKind string

const (
	// KindSource represents regular Go source files.
	KindSource FileKind = "source"
	// KindTest represents _test.go files.
	KindTest FileKind = "test"
)

// SourceFile describes one file discovered by the walker.
type SourceFile struct {
	Path Path
	Kind FileKind
	// PkgPath is the file's import path, derived from the enclosing
	// module. Declared types are addressed as PkgPath + "." + name.
	PkgPath string
	// Generated is set for files carrying a standard generated-code
	// marker. Generated files are never neutralized, only warned.
	Generated bool
	Hash      string
}

// ImportRecord is one import spec as it appeared when the file was
// loaded, before any rewriting.
type ImportRecord struct {
	// Alias is the explicit local name, "" when the spec has none and
	// "." for dot imports.
	Alias string
	Path  string
}

// TypeIndex maps the source text of a type reference ("ui.Widget",
// "Widget") to the fully qualified names it resolved to in the load-time
// compilation. Most references resolve to exactly one name; shadowing
// inside nested scopes can produce more.
type TypeIndex map[string][]string

// Package model defines the data structures for API migration.
package model

// Category classifies how an old API type maps onto the new API.
type Category string

const (
	// CategoryRenamed means the type has a direct successor under a new
	// name and/or namespace. References are rewritten mechanically.
	CategoryRenamed Category = "renamed"
	// CategoryNoEquivalent means the type was retired without a
	// successor. References are reported; declarations built on the type
	// may be neutralized.
	CategoryNoEquivalent Category = "no-equivalent"
	// CategoryManualConversion means a successor exists but the port
	// needs a human (changed semantics, split/merged API surface).
	CategoryManualConversion Category = "manual-conversion-required"
)

// Replacement is the successor of a renamed type.
type Replacement struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
}

// Mapping is one porting-catalog entry: how a single old type migrates.
type Mapping struct {
	// Name is the type's short name in the old API.
	Name string `yaml:"name"`
	// Namespace is the old import path declaring the type.
	Namespace string `yaml:"namespace"`
	Category  Category `yaml:"category"`
	// Replacement is set for CategoryRenamed entries only.
	Replacement *Replacement `yaml:"replacement,omitempty"`
	// Note explains why the type needs attention. Required for
	// no-equivalent and manual-conversion entries; it ends up verbatim in
	// problem reports and retirement blocks.
	Note string `yaml:"note,omitempty"`
	// Quarantine marks the type as unsafe to keep references to:
	// declarations depending on it are neutralized rather than warned.
	Quarantine bool `yaml:"quarantine,omitempty"`
	// FileKinds restricts which file kinds the entry applies to.
	// Empty means all kinds.
	FileKinds []FileKind `yaml:"fileKinds,omitempty"`
}

// OldFQN returns the entry's fully qualified old name.
func (m Mapping) OldFQN() string {
	return FQN(m.Namespace, m.Name)
}

// NewFQN returns the successor's fully qualified name, or "" when the
// entry has no replacement.
func (m Mapping) NewFQN() string {
	if m.Replacement == nil {
		return ""
	}
	return FQN(m.Replacement.Namespace, m.Replacement.Name)
}

// AppliesTo reports whether the entry is in force for files of the given
// kind.
func (m Mapping) AppliesTo(kind FileKind) bool {
	if len(m.FileKinds) == 0 {
		return true
	}
	for _, k := range m.FileKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NamespaceRename is an import-path rename that carries no per-type entry.
type NamespaceRename struct {
	Old string `yaml:"old"`
	New string `yaml:"new"`
}

// FQN renders a fully qualified type name as "import/path.Name".
func FQN(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

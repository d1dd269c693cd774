package model

// Severity ranks how badly a detected reference blocks the migration.
type Severity string

const (
	// SeverityCritical marks a retired type used as an embedded base.
	// The declaration cannot exist in the new API.
	SeverityCritical Severity = "critical"
	// SeverityHigh marks any other reference to a type with no
	// equivalent.
	SeverityHigh Severity = "high"
	// SeverityMedium marks references needing manual conversion, and
	// renames skipped because the short name was ambiguous.
	SeverityMedium Severity = "medium"
)

// Rank orders severities for threshold comparisons; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}

// ParseSeverity maps a user-supplied severity name, "" when unknown.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium:
		return Severity(s)
	}
	return ""
}

// TypeState is the migration state of one declaration unit.
type TypeState string

const (
	// StateActive units survived detection untouched.
	StateActive TypeState = "active"
	// StateWarned units carry problems but stay compiled; they get
	// marker comments.
	StateWarned TypeState = "warned"
	// StateNeutralized units were replaced by inert comment blocks.
	StateNeutralized TypeState = "neutralized"
)

// UnitKind separates the shapes of top-level declarations the pipeline
// tracks. Types are the primary units; functions and value blocks
// participate so the cascade can keep neutralized files compiling.
type UnitKind string

const (
	// UnitType is a type declaration plus its method set.
	UnitType UnitKind = "type"
	// UnitFunc is a free function (no receiver).
	UnitFunc UnitKind = "func"
	// UnitValue is a package-level var or const declaration.
	UnitValue UnitKind = "value"
)

// TypeProblem records one retired-API dependency of one declaration
// unit. Problems are deduplicated per (unit, target): a type that
// references the same retired name three times gets one problem.
type TypeProblem struct {
	// Class is the fully qualified name of the declaring unit.
	Class string `yaml:"class"`
	File  Path   `yaml:"file"`
	// Target is the fully qualified name of the retired type referenced.
	Target   string   `yaml:"target"`
	Category Category `yaml:"category"`
	Severity Severity `yaml:"severity"`
	Note     string   `yaml:"note,omitempty"`
	// ViaEmbedding is set when the reference is an embedded base, which
	// is what escalates no-equivalent hits to critical.
	ViaEmbedding bool `yaml:"viaEmbedding,omitempty"`
	// Quarantine mirrors the catalog entry; it drives neutralization.
	Quarantine bool `yaml:"quarantine,omitempty"`
}

// Fragment is the detector's record for one declaration unit as seen in
// one file: the declaration itself, or a detached method set when a
// type's methods live in another file. Fragments sharing an FQN merge
// before any neutralization decision.
type Fragment struct {
	// Name is the unit's short name: the type name, the function name,
	// or the first declared name of a value block.
	Name string
	FQN  string
	Kind UnitKind
	File Path
	// FileKind gates which catalog entries apply.
	FileKind FileKind
	// HasDecl marks the fragment holding the declaration itself, as
	// opposed to a method-set fragment.
	HasDecl bool
	// Protected units are warned but never neutralized: generated
	// files, main functions, and types embedding a protected base.
	Protected bool
	Problems  []TypeProblem
	// RefFQNs are candidate references to other units, feeding the
	// dependency cascade once filtered against the known unit set.
	RefFQNs []string
}

// SkippedRef records a rename the rewriter declined because the short
// name mapped into more than one namespace.
type SkippedRef struct {
	File   Path   `yaml:"file"`
	Name   string `yaml:"name"`
	Line   int    `yaml:"line"`
	Reason string `yaml:"reason"`
}

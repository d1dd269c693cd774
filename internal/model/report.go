package model

import "time"

// ImportChange records one import rewritten or removed in a file.
type ImportChange struct {
	File  Path   `yaml:"file"`
	Old   string `yaml:"old"`
	New   string `yaml:"new,omitempty"` // "" means the import was removed
	Alias string `yaml:"alias,omitempty"`
}

// TypeRewrite records one type reference substituted in a file.
type TypeRewrite struct {
	File Path   `yaml:"file"`
	Old  string `yaml:"old"`
	New  string `yaml:"new"`
	Line int    `yaml:"line"`
}

// NeutralizedType records one declaration replaced by a retirement block.
type NeutralizedType struct {
	FQN     string   `yaml:"fqn"`
	File    Path     `yaml:"file"`
	Reasons []string `yaml:"reasons"`
	// Cascade is set when the type was neutralized only because it
	// depends on another neutralized type.
	Cascade bool `yaml:"cascade,omitempty"`
}

// FileOutcome summarizes what the pipeline did to a single file.
type FileOutcome struct {
	Path              Path     `yaml:"path"`
	Kind              FileKind `yaml:"kind"`
	Hash              string   `yaml:"hash"`
	Generations       int      `yaml:"generations"`
	ImportsRewritten  int      `yaml:"importsRewritten"`
	TypeRefsRewritten int      `yaml:"typeRefsRewritten"`
	TypesWarned       int      `yaml:"typesWarned"`
	TypesNeutralized  int      `yaml:"typesNeutralized"`
	Changed           bool     `yaml:"changed"`
}

// Totals aggregates counters across the whole run.
type Totals struct {
	FilesScanned       int              `yaml:"filesScanned"`
	FilesChanged       int              `yaml:"filesChanged"`
	ImportsRewritten   int              `yaml:"importsRewritten"`
	TypeRefsRewritten  int              `yaml:"typeRefsRewritten"`
	TypesWarned        int              `yaml:"typesWarned"`
	TypesNeutralized   int              `yaml:"typesNeutralized"`
	CascadeNeutralized int              `yaml:"cascadeNeutralized"`
	Problems           map[Severity]int `yaml:"problems"`
}

// RunReport is the durable record of one migration run.
type RunReport struct {
	ID       string        `yaml:"id"`
	Started  time.Time     `yaml:"started"`
	Duration time.Duration `yaml:"duration"`
	Catalog  string        `yaml:"catalog"`
	Paths    []string      `yaml:"paths"`
	WarnOnly bool          `yaml:"warnOnly,omitempty"`
	DryRun   bool          `yaml:"dryRun,omitempty"`

	Totals      Totals            `yaml:"totals"`
	Files       []FileOutcome     `yaml:"files,omitempty"`
	Problems    []TypeProblem     `yaml:"problems,omitempty"`
	Neutralized []NeutralizedType `yaml:"neutralized,omitempty"`
	Skipped     []SkippedRef      `yaml:"skipped,omitempty"`
	// BuildOutput holds raw verifier output lines when --verify ran.
	BuildOutput []string `yaml:"buildOutput,omitempty"`
}

// MaxSeverity returns the worst severity present in the report, or ""
// when it is clean.
func (r RunReport) MaxSeverity() Severity {
	var worst Severity
	for _, p := range r.Problems {
		if p.Severity.Rank() > worst.Rank() {
			worst = p.Severity
		}
	}
	return worst
}

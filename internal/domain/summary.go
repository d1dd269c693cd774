package domain

import (
	"sort"

	m "sunset.dev/pkg/sunset/internal/model"
	pkg "sunset.dev/pkg/sunset/pkg"
)

// totalsFromOutcomes folds the spilled per-file outcomes into the run
// totals. Problem and cascade counters are filled by the caller from the
// decision set.
func totalsFromOutcomes(outcomes pkg.FileSpill[m.FileOutcome]) (m.Totals, []m.FileOutcome, error) {
	totals := m.Totals{Problems: make(map[m.Severity]int)}
	var files []m.FileOutcome

	err := outcomes.Range(func(_ uint64, o m.FileOutcome) error {
		totals.FilesScanned++
		if o.Changed {
			totals.FilesChanged++
		}
		totals.ImportsRewritten += o.ImportsRewritten
		totals.TypeRefsRewritten += o.TypeRefsRewritten
		files = append(files, o)
		return nil
	})
	if err != nil {
		return m.Totals{}, nil, err
	}
	return totals, files, nil
}

// applyDecisionTotals counts warned and neutralized units into the
// totals and returns the neutralized records for the report.
func applyDecisionTotals(totals *m.Totals, units map[string]*Unit, decisions map[string]*Decision) []m.NeutralizedType {
	var neutralized []m.NeutralizedType
	for fqn, d := range decisions {
		switch d.State {
		case m.StateWarned:
			totals.TypesWarned++
		case m.StateNeutralized:
			totals.TypesNeutralized++
			if d.Cascade {
				totals.CascadeNeutralized++
			}
			u := units[fqn]
			rec := m.NeutralizedType{FQN: fqn, Reasons: d.Reasons, Cascade: d.Cascade}
			if u != nil && len(u.Files) > 0 {
				rec.File = u.Files[0]
			}
			neutralized = append(neutralized, rec)
		}
	}
	sort.Slice(neutralized, func(i, j int) bool { return neutralized[i].FQN < neutralized[j].FQN })
	return neutralized
}

// collectProblems flattens unit problems into the report list and
// tallies them by severity.
func collectProblems(totals *m.Totals, units map[string]*Unit) []m.TypeProblem {
	var problems []m.TypeProblem
	for _, u := range units {
		for _, p := range u.Problems {
			problems = append(problems, p)
			totals.Problems[p.Severity]++
		}
	}
	sort.Slice(problems, func(i, j int) bool {
		if problems[i].Class != problems[j].Class {
			return problems[i].Class < problems[j].Class
		}
		return problems[i].Target < problems[j].Target
	})
	return problems
}

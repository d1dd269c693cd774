package domain

import (
	"fmt"
	"sort"

	m "sunset.dev/pkg/sunset/internal/model"
)

// Cascade propagates neutralization across the dependency graph: any
// active unit referencing a neutralized unit is neutralized in turn,
// breadth-first to a fixed point. Warned units are never upgraded; they
// only collect an extra warning line. The visited set bounds the walk,
// so reference cycles terminate.
//
// The graph is built once from the detection-stage reference sets; no
// re-scan of source text happens here.
func Cascade(units map[string]*Unit, decisions map[string]*Decision) {
	dependents := make(map[string][]string)
	for fqn, u := range units {
		for _, ref := range u.RefFQNs {
			if _, known := units[ref]; known && ref != fqn {
				dependents[ref] = append(dependents[ref], fqn)
			}
		}
	}

	var frontier []string
	visited := make(map[string]bool)
	for fqn, d := range decisions {
		if d.State == m.StateNeutralized {
			frontier = append(frontier, fqn)
			visited[fqn] = true
		}
	}
	sort.Strings(frontier)

	for len(frontier) > 0 {
		fqn := frontier[0]
		frontier = frontier[1:]

		deps := append([]string(nil), dependents[fqn]...)
		sort.Strings(deps)
		for _, dep := range deps {
			d := decisions[dep]
			reason := fmt.Sprintf("depends on neutralized %s", fqn)
			switch d.State {
			case m.StateWarned:
				d.Reasons = appendUnique(d.Reasons, reason)
			case m.StateActive:
				d.State = m.StateNeutralized
				d.Cascade = true
				d.Reasons = appendUnique(d.Reasons, reason)
			case m.StateNeutralized:
				if visited[dep] {
					continue
				}
				d.Reasons = appendUnique(d.Reasons, reason)
			}
			if d.State == m.StateNeutralized && !visited[dep] {
				visited[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}
}

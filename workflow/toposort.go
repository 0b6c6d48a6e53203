package workflow

import (
	"sort"

	"github.com/ducks/llmux/config"
)

// topoSort orders steps so every depends_on target precedes its
// dependents (Kahn's algorithm), breaking ties by declaration order so
// the result is deterministic and matches input order whenever the
// dependency graph imposes no constraint. Assumes config.Validate has
// already rejected cycles and unknown dependencies.
func topoSort(steps []config.Step) ([]string, error) {
	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	index := make(map[string]int, len(steps))

	for i, s := range steps {
		indegree[s.Name] = 0
		index[s.Name] = i
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.Name)
			indegree[s.Name]++
		}
	}

	var ready []string
	for _, s := range steps {
		if indegree[s.Name] == 0 {
			ready = append(ready, s.Name)
		}
	}

	order := make([]string, 0, len(steps))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(steps) {
		return nil, &CyclicDependencyError{}
	}
	return order, nil
}

package daemon

import (
	"fmt"
	"sort"
	"strings"
)

// resolveOrder sorts components so that every dependency comes before its
// dependents. Ties keep registration order, which makes the result stable
// across runs.
func resolveOrder(components []Component) ([]string, error) {
	index := make(map[string]int, len(components))
	for i, comp := range components {
		if _, dup := index[comp.Name()]; dup {
			return nil, fmt.Errorf("component %s registered twice", comp.Name())
		}
		index[comp.Name()] = i
	}

	pending := make([]int, len(components))
	dependents := make([][]int, len(components))
	for i, comp := range components {
		for _, dep := range comp.Dependencies() {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range components {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(components))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, components[next].Name())
		for _, d := range dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(components) {
		var stuck []string
		for i, comp := range components {
			if pending[i] > 0 {
				stuck = append(stuck, comp.Name())
			}
		}
		return nil, fmt.Errorf("circular dependency among %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

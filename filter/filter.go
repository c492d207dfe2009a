// Package filter provides composable predicates over the set of component
// types an entity currently has. Filters feed the search package and the
// inspection server.
package filter

import "github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"

// ComponentFilter decides whether an entity's component set matches.
type ComponentFilter interface {
	// MatchesComponents returns true if the given component names match the filter.
	MatchesComponents(components []string) bool
}

// ComponentWrapper carries a component name into a filter without requiring a
// component value.
type ComponentWrapper struct {
	Name string
}

// Component produces the wrapper for a component type.
func Component[T types.Component]() ComponentWrapper {
	var t T
	return ComponentWrapper{Name: t.Name()}
}

func names(components []ComponentWrapper) []string {
	out := make([]string, 0, len(components))
	for _, c := range components {
		out = append(out, c.Name)
	}
	return out
}

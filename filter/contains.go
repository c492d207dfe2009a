package filter

type contains struct {
	components []string
}

// Contains matches entities that have all of the given components, and
// possibly others.
func Contains(components ...ComponentWrapper) ComponentFilter {
	return contains{components: names(components)}
}

func (f contains) MatchesComponents(components []string) bool {
	matches := makeMatcher(components)
	for _, name := range f.components {
		if !matches(name) {
			return false
		}
	}
	return true
}

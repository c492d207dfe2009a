package filter

type exact struct {
	components []string
}

// Exact matches entities whose component set is exactly the given components.
func Exact(components ...ComponentWrapper) ComponentFilter {
	return exact{components: names(components)}
}

func (f exact) MatchesComponents(components []string) bool {
	if len(components) != len(f.components) {
		return false
	}
	matches := makeMatcher(f.components)
	for _, name := range components {
		if !matches(name) {
			return false
		}
	}
	return true
}

package filter

type and struct {
	filters []ComponentFilter
}

// And matches entities that match every given filter.
func And(filters ...ComponentFilter) ComponentFilter {
	return and{filters: filters}
}

func (f and) MatchesComponents(components []string) bool {
	for _, filter := range f.filters {
		if !filter.MatchesComponents(components) {
			return false
		}
	}
	return true
}

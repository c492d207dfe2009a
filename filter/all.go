package filter

type all struct{}

// All matches every entity.
func All() ComponentFilter {
	return all{}
}

func (all) MatchesComponents([]string) bool {
	return true
}

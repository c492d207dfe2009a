package filter

// makeMatcher builds a membership test over a set of component names.
func makeMatcher(components []string) func(string) bool {
	set := make(map[string]struct{}, len(components))
	for _, name := range components {
		set[name] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

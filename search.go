package worldsim

import (
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/filter"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/search"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// NewSearch creates a search over the world's entities for the given
// component filter.
func NewSearch(wCtx WorldContext, componentFilter filter.ComponentFilter) *search.Search {
	return search.New(wCtx.store().ToReadOnly(), componentFilter)
}

// Query returns all entities that have every one of the named component
// types. It is the plain set-intersection query; use NewSearch with filter
// combinators for anything richer.
func Query(wCtx WorldContext, componentNames ...string) ([]types.EntityID, error) {
	return wCtx.store().Query(componentNames...)
}

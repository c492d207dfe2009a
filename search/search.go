// Package search iterates entities whose component sets match a filter.
// Iteration follows entity allocation order, so results are deterministic for
// a deterministic simulation.
package search

import (
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/filter"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/state"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// ErrNoEntitiesFound is returned by First when nothing matches.
var ErrNoEntitiesFound = eris.New("no entities found")

// CallbackFn is called for every matching entity. Returning false stops the
// iteration.
type CallbackFn func(types.EntityID) bool

// Search finds entities matching a component filter against a read-only view
// of the store.
type Search struct {
	reader state.Reader
	filter filter.ComponentFilter
}

func New(reader state.Reader, componentFilter filter.ComponentFilter) *Search {
	return &Search{reader: reader, filter: componentFilter}
}

// Each calls callback for every matching entity, in allocation order, until
// the callback returns false.
func (s *Search) Each(callback CallbackFn) error {
	for _, id := range s.reader.AllEntities() {
		if !s.filter.MatchesComponents(s.reader.ComponentTypesFor(id)) {
			continue
		}
		if !callback(id) {
			return nil
		}
	}
	return nil
}

// Count returns the number of matching entities.
func (s *Search) Count() (int, error) {
	count := 0
	err := s.Each(func(types.EntityID) bool {
		count++
		return true
	})
	return count, err
}

// First returns the first matching entity in allocation order.
func (s *Search) First() (types.EntityID, error) {
	var first types.EntityID
	found := false
	err := s.Each(func(id types.EntityID) bool {
		first = id
		found = true
		return false
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, eris.Wrap(ErrNoEntitiesFound, "")
	}
	return first, nil
}

// MustFirst returns the first matching entity and panics if there is none.
func (s *Search) MustFirst() types.EntityID {
	id, err := s.First()
	if err != nil {
		panic("no entity matches the search")
	}
	return id
}

// Collect returns all matching entities in allocation order.
func (s *Search) Collect() ([]types.EntityID, error) {
	var ids []types.EntityID
	err := s.Each(func(id types.EntityID) bool {
		ids = append(ids, id)
		return true
	})
	return ids, err
}

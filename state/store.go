// Package state implements the entity/component store that every simulation
// system reads and writes. Entities are dense monotonically-allocated ids;
// components live in per-type tables keyed by entity id.
//
// Every iteration the store exposes walks an explicit order slice rather than
// a Go map, because map iteration order would leak nondeterminism into
// systems and break the bit-for-bit reproducibility contract.
package state

import (
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// Reader is the read-only view of the store handed to search, the inspection
// server, and anything else that must not mutate world state.
type Reader interface {
	HasTable(name string) bool
	Component(name string, id types.EntityID) (any, error)
	ComponentTypesFor(id types.EntityID) []string
	Query(names ...string) ([]types.EntityID, error)
	AllEntities() []types.EntityID
	EntityCount() int
	TableSize(name string) (int, error)
	TableNames() []string
}

var _ Reader = (*Store)(nil)

// table is the storage for a single component type. rows holds the component
// values, order holds entity ids in insertion order, and pos maps an entity
// id to its index in order so removal is O(1).
type table struct {
	rows  map[types.EntityID]any
	order []types.EntityID
	pos   map[types.EntityID]int
}

func newTable() *table {
	return &table{
		rows: make(map[types.EntityID]any),
		pos:  make(map[types.EntityID]int),
	}
}

func (t *table) set(id types.EntityID, value any) {
	if _, ok := t.rows[id]; !ok {
		t.pos[id] = len(t.order)
		t.order = append(t.order, id)
	}
	t.rows[id] = value
}

// remove swap-deletes id from the order slice. Iteration order after a
// removal is still deterministic, but it is no longer insertion order.
func (t *table) remove(id types.EntityID) {
	i, ok := t.pos[id]
	if !ok {
		return
	}
	last := len(t.order) - 1
	moved := t.order[last]
	t.order[i] = moved
	t.pos[moved] = i
	t.order = t.order[:last]
	delete(t.pos, id)
	delete(t.rows, id)
}

// Store is the authoritative entity/component storage for one world.
type Store struct {
	nextEntityID types.EntityID
	entities     map[types.EntityID]struct{}
	entityOrder  []types.EntityID

	tables     map[string]*table
	tableNames []string
}

func NewStore() *Store {
	return &Store{
		nextEntityID: 1,
		entities:     make(map[types.EntityID]struct{}),
		tables:       make(map[string]*table),
	}
}

// CreateEntity allocates a new entity id. Ids start at 1 and are never
// reused.
func (s *Store) CreateEntity() types.EntityID {
	id := s.nextEntityID
	s.nextEntityID++
	s.entities[id] = struct{}{}
	s.entityOrder = append(s.entityOrder, id)
	return id
}

// CreateManyEntities allocates n consecutive entity ids.
func (s *Store) CreateManyEntities(n int) []types.EntityID {
	ids := make([]types.EntityID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, s.CreateEntity())
	}
	return ids
}

// RegisterTable declares a component table. Registering the same name twice
// is a no-op; existing data is never reset.
func (s *Store) RegisterTable(name string) {
	if _, ok := s.tables[name]; ok {
		return
	}
	s.tables[name] = newTable()
	s.tableNames = append(s.tableNames, name)
}

func (s *Store) HasTable(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// TableNames returns the registered table names in registration order.
func (s *Store) TableNames() []string {
	out := make([]string, len(s.tableNames))
	copy(out, s.tableNames)
	return out
}

// SetComponent inserts or overwrites the entity's component in the named
// table.
func (s *Store) SetComponent(name string, id types.EntityID, value any) error {
	t, ok := s.tables[name]
	if !ok {
		return eris.Wrapf(ErrTableNotRegistered, "table %q", name)
	}
	if _, ok := s.entities[id]; !ok {
		return eris.Wrapf(ErrEntityDoesNotExist, "entity %d", id)
	}
	t.set(id, value)
	return nil
}

// Component returns the entity's component from the named table.
// ErrComponentNotOnEntity signals the normal absent case.
func (s *Store) Component(name string, id types.EntityID) (any, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, eris.Wrapf(ErrTableNotRegistered, "table %q", name)
	}
	value, ok := t.rows[id]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotOnEntity, "component %q, entity %d", name, id)
	}
	return value, nil
}

// RemoveComponent removes the entity's component from the named table.
// Removing an absent component returns ErrComponentNotOnEntity.
func (s *Store) RemoveComponent(name string, id types.EntityID) error {
	t, ok := s.tables[name]
	if !ok {
		return eris.Wrapf(ErrTableNotRegistered, "table %q", name)
	}
	if _, ok := t.rows[id]; !ok {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q, entity %d", name, id)
	}
	t.remove(id)
	return nil
}

// RemoveAllComponents strips every component from the entity. This is the
// closest thing to destroying an entity; the id itself is never reclaimed.
func (s *Store) RemoveAllComponents(id types.EntityID) error {
	if _, ok := s.entities[id]; !ok {
		return eris.Wrapf(ErrEntityDoesNotExist, "entity %d", id)
	}
	for _, name := range s.tableNames {
		s.tables[name].remove(id)
	}
	return nil
}

// ComponentTypesFor returns the names of the tables that currently hold a
// component for the entity, in table registration order.
func (s *Store) ComponentTypesFor(id types.EntityID) []string {
	var names []string
	for _, name := range s.tableNames {
		if _, ok := s.tables[name].rows[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Query returns all entities that have every one of the named components.
// Iteration starts from the smallest table; the result order follows that
// table's internal order, which is deterministic but not guaranteed to be
// insertion order once components have been removed.
func (s *Store) Query(names ...string) ([]types.EntityID, error) {
	if len(names) == 0 {
		return nil, eris.New("query requires at least one component name")
	}
	tables := make([]*table, 0, len(names))
	smallest := -1
	for _, name := range names {
		t, ok := s.tables[name]
		if !ok {
			return nil, eris.Wrapf(ErrTableNotRegistered, "table %q", name)
		}
		tables = append(tables, t)
		if smallest == -1 || len(t.order) < len(tables[smallest].order) {
			smallest = len(tables) - 1
		}
	}

	result := make([]types.EntityID, 0, len(tables[smallest].order))
outer:
	for _, id := range tables[smallest].order {
		for i, t := range tables {
			if i == smallest {
				continue
			}
			if _, ok := t.rows[id]; !ok {
				continue outer
			}
		}
		result = append(result, id)
	}
	return result, nil
}

// AllEntities returns every allocated entity id in allocation order.
func (s *Store) AllEntities() []types.EntityID {
	out := make([]types.EntityID, len(s.entityOrder))
	copy(out, s.entityOrder)
	return out
}

func (s *Store) EntityCount() int {
	return len(s.entityOrder)
}

// TableSize returns the number of entities that currently have the named
// component.
func (s *Store) TableSize(name string) (int, error) {
	t, ok := s.tables[name]
	if !ok {
		return 0, eris.Wrapf(ErrTableNotRegistered, "table %q", name)
	}
	return len(t.order), nil
}

// ToReadOnly returns the store as a Reader. The underlying data is shared;
// the interface just prevents mutation.
func (s *Store) ToReadOnly() Reader {
	return s
}

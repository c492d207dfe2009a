package worldsim

import (
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/component"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// EntityID is the unique id of an entity. Ids are assigned sequentially and
// never reused within a run.
type EntityID = types.EntityID

// RegisterComponent registers a component type with the world and declares
// its table in the state store. It may only be called before LoadWorldState.
func RegisterComponent[T types.Component](w *World) error {
	if err := w.requireInitStage("register components"); err != nil {
		return err
	}
	compMetadata, err := component.NewComponentMetadata[T]()
	if err != nil {
		return err
	}
	if err := w.componentManager.RegisterComponent(compMetadata); err != nil {
		return err
	}
	w.store.RegisterTable(compMetadata.Name())
	return nil
}

// MustRegisterComponent is RegisterComponent but panics on error. Component
// registration failures are wiring mistakes that should stop the program at
// startup.
func MustRegisterComponent[T types.Component](w *World) {
	if err := RegisterComponent[T](w); err != nil {
		panic(err)
	}
}

// CreateMany creates num entities, each carrying the given components.
func CreateMany(wCtx WorldContext, num int, components ...types.Component) ([]types.EntityID, error) {
	if wCtx.isReadOnly() {
		return nil, eris.Wrap(ErrReadOnlyContext, "cannot create entities")
	}
	// Resolve every component against the registry first so either all
	// entities are created or none are.
	for _, comp := range components {
		if _, err := wCtx.components().GetComponentByName(comp.Name()); err != nil {
			return nil, eris.Wrap(err, "must register component before creating an entity with it")
		}
	}
	ids := wCtx.store().CreateManyEntities(num)
	for _, id := range ids {
		for _, comp := range components {
			if err := wCtx.store().SetComponent(comp.Name(), id, comp); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}

// Create creates a single entity carrying the given components.
func Create(wCtx WorldContext, components ...types.Component) (types.EntityID, error) {
	ids, err := CreateMany(wCtx, 1, components...)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// GetComponent returns the entity's component of type T. The absent case is
// reported as state.ErrComponentNotOnEntity; an unregistered component type
// is a wiring error.
func GetComponent[T types.Component](wCtx WorldContext, id types.EntityID) (*T, error) {
	var t T
	if _, err := wCtx.components().GetComponentByName(t.Name()); err != nil {
		return nil, eris.Wrap(err, "must register component before reading it")
	}
	value, err := wCtx.store().Component(t.Name(), id)
	if err != nil {
		return nil, err
	}
	comp, ok := value.(T)
	if !ok {
		ptr, ok := value.(*T)
		if !ok {
			return nil, eris.Errorf("type assertion for component %q failed", t.Name())
		}
		return ptr, nil
	}
	return &comp, nil
}

// SetComponent writes the entity's component of type T.
func SetComponent[T types.Component](wCtx WorldContext, id types.EntityID, comp *T) error {
	if wCtx.isReadOnly() {
		return eris.Wrap(ErrReadOnlyContext, "cannot set components")
	}
	var t T
	c, err := wCtx.components().GetComponentByName(t.Name())
	if err != nil {
		return eris.Wrapf(err, "%s is not registered, please register it before updating", t.Name())
	}
	if err := wCtx.store().SetComponent(t.Name(), id, *comp); err != nil {
		return err
	}
	wCtx.Logger().Debug().
		Uint64("entity_id", uint64(id)).
		Str("component_name", c.Name()).
		Int("component_id", int(c.ID())).
		Msg("entity updated")
	return nil
}

// UpdateComponent reads the entity's component of type T, applies fn, and
// writes the result back.
func UpdateComponent[T types.Component](wCtx WorldContext, id types.EntityID, fn func(*T) *T) error {
	val, err := GetComponent[T](wCtx, id)
	if err != nil {
		return err
	}
	return SetComponent[T](wCtx, id, fn(val))
}

// RemoveComponent removes the entity's component of type T. Removing an
// absent component returns state.ErrComponentNotOnEntity.
func RemoveComponent[T types.Component](wCtx WorldContext, id types.EntityID) error {
	if wCtx.isReadOnly() {
		return eris.Wrap(ErrReadOnlyContext, "cannot remove components")
	}
	var t T
	if _, err := wCtx.components().GetComponentByName(t.Name()); err != nil {
		return eris.Wrap(err, "must register component before removing it")
	}
	return wCtx.store().RemoveComponent(t.Name(), id)
}

// RemoveAllComponents strips every component from the entity, which is how
// an entity is logically destroyed. The id itself is never reused.
func RemoveAllComponents(wCtx WorldContext, id types.EntityID) error {
	if wCtx.isReadOnly() {
		return eris.Wrap(ErrReadOnlyContext, "cannot remove components")
	}
	return wCtx.store().RemoveAllComponents(id)
}

package state

import "github.com/rotisserie/eris"

var (
	// ErrTableNotRegistered is returned when a component table is accessed
	// before being registered. This is a wiring mistake in the caller, not a
	// normal "absent" case.
	ErrTableNotRegistered = eris.New("component table is not registered")

	// ErrEntityDoesNotExist is returned when an operation references an
	// entity id that was never allocated.
	ErrEntityDoesNotExist = eris.New("entity does not exist")

	// ErrComponentNotOnEntity is returned when an entity does not currently
	// have the requested component. This is the expected "absent" case and
	// callers are expected to handle it.
	ErrComponentNotOnEntity = eris.New("component is not on entity")
)

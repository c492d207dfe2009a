package worldsim

import (
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
)

// RegisterEventType registers a typed event with the world so it shows up in
// the world summary and the /world endpoint. Like components and systems,
// event types may only be registered before LoadWorldState.
func RegisterEventType[T any](w *World, t *event.Type[T]) error {
	if err := w.requireInitStage("register event types"); err != nil {
		return err
	}
	return event.RegisterType(w.eventTypes, t)
}

// MustRegisterEventType is RegisterEventType but panics on error.
func MustRegisterEventType[T any](w *World, t *event.Type[T]) {
	if err := RegisterEventType(w, t); err != nil {
		panic(err)
	}
}

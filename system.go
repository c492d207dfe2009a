// Package worldsim is a deterministic, tick-driven world-history simulation
// kernel. Domain systems mutate a shared entity/component store over
// simulated time and record their effects as an append-only, causally-linked
// event log. For a fixed seed and a fixed set of registered systems, a
// simulation is bit-for-bit reproducible.
package worldsim

import (
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/worldstage"
)

// System is a unit of simulation logic invoked by the scheduler. Execute is
// called on every tick where the system's frequency divides the current tick
// (frequency 1 means every tick). Within one tick, due systems run in
// ascending Order, ties broken by registration order; that ordering is part
// of the public contract, because later systems may react to events emitted
// earlier in the same tick.
type System interface {
	Name() string
	Frequency() uint64
	Order() int
	Execute(WorldContext) error
}

// Initializer is an optional capability of a System. Initialize runs once,
// in execution order, when the world state is loaded and before the first
// tick.
type Initializer interface {
	Initialize(WorldContext) error
}

// Cleaner is an optional capability of a System. Cleanup runs on shutdown,
// giving a system the chance to release its internal registries; tests rely
// on it for isolation between worlds.
type Cleaner interface {
	Cleanup()
}

type funcSystem struct {
	name      string
	frequency uint64
	order     int
	fn        func(WorldContext) error
}

// NewSystem wraps a plain function as a System.
func NewSystem(name string, frequency uint64, order int, fn func(WorldContext) error) System {
	return &funcSystem{name: name, frequency: frequency, order: order, fn: fn}
}

func (s *funcSystem) Name() string      { return s.name }
func (s *funcSystem) Frequency() uint64 { return s.frequency }
func (s *funcSystem) Order() int        { return s.order }

func (s *funcSystem) Execute(wCtx WorldContext) error {
	return s.fn(wCtx)
}

// RegisterSystems registers systems with the world. It may only be called
// before LoadWorldState.
func RegisterSystems(w *World, systems ...System) error {
	if err := w.requireInitStage("register systems"); err != nil {
		return err
	}
	return w.systemManager.RegisterSystems(systems...)
}

func (w *World) requireInitStage(action string) error {
	if stage := w.worldStage.Current(); stage != worldstage.Init {
		return eris.Errorf("cannot %s while the world is in stage %s", action, stage)
	}
	return nil
}

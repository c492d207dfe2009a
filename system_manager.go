package worldsim

import (
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/report"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/rng"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/statsd"
)

const noActiveSystemName = ""

// registeredSystem is the manager's bookkeeping for one system: its declared
// schedule, its position in the registration order (the Order tiebreak), and
// its private RNG substream.
type registeredSystem struct {
	sys      System
	name     string
	freq     uint64
	order    int
	regIndex int
	rand     *rng.Source
}

// SystemManager registers systems and runs the due ones each tick in a
// stable order.
type SystemManager struct {
	// systems is kept in registration order until Finalize sorts it into
	// execution order. This is a list because maps in Go are unordered.
	systems []*registeredSystem

	// currentSystem is the name of the system that is currently running.
	currentSystem string

	finalized bool
}

func NewSystemManager() *SystemManager {
	return &SystemManager{currentSystem: noActiveSystemName}
}

// RegisterSystems registers multiple systems with the system manager.
// There can only be one system with a given name, and every frequency must be
// at least 1. If any system in the slice fails validation, none of them are
// registered.
func (m *SystemManager) RegisterSystems(systems ...System) error {
	if m.finalized {
		return eris.New("cannot register systems after the world state is loaded")
	}

	toRegister := make([]*registeredSystem, 0, len(systems))
	for _, sys := range systems {
		name := sys.Name()
		if name == "" {
			return eris.New("system name must not be empty")
		}
		if sys.Frequency() < 1 {
			return eris.Errorf("system %q frequency must be at least 1", name)
		}
		if slices.ContainsFunc(toRegister, func(r *registeredSystem) bool { return r.name == name }) {
			return eris.Errorf("duplicate system %q in slice", name)
		}
		if slices.ContainsFunc(m.systems, func(r *registeredSystem) bool { return r.name == name }) {
			return eris.Errorf("system %q is already registered", name)
		}
		toRegister = append(toRegister, &registeredSystem{
			sys:      sys,
			name:     name,
			freq:     sys.Frequency(),
			order:    sys.Order(),
			regIndex: len(m.systems) + len(toRegister),
		})
	}

	m.systems = append(m.systems, toRegister...)
	return nil
}

// Finalize locks registration, sorts the systems into execution order
// (ascending Order, registration order as the tiebreak), and forks each
// system's private RNG substream by name from the world's root source.
// Forking by name makes a system's stream independent of how many other
// systems are registered and of where it sits in the order.
func (m *SystemManager) Finalize(root *rng.Source) {
	slices.SortStableFunc(m.systems, func(a, b *registeredSystem) int {
		if a.order != b.order {
			return a.order - b.order
		}
		return a.regIndex - b.regIndex
	})
	for _, r := range m.systems {
		r.rand = root.Fork("system/" + r.name)
	}
	m.finalized = true
}

// RunInitializers runs the Initialize hook of every system that has one, in
// execution order. Unlike per-tick execution, an initialization failure is a
// wiring error and aborts the load.
func (m *SystemManager) RunInitializers(wCtx *worldContext) error {
	baseLogger := wCtx.Logger()
	for _, r := range m.systems {
		init, ok := r.sys.(Initializer)
		if !ok {
			continue
		}
		m.currentSystem = r.name
		wCtx.setLogger(baseLogger.With().Str("system", r.name).Logger())
		wCtx.setRand(r.rand)
		if err := init.Initialize(wCtx); err != nil {
			m.currentSystem = noActiveSystemName
			return eris.Wrapf(err, "system %s failed to initialize", r.name)
		}
	}
	wCtx.setLogger(*baseLogger)
	m.currentSystem = noActiveSystemName
	return nil
}

// RunSystems runs every system whose frequency divides the current tick, in
// execution order. A system that errors or panics is recorded in the tick
// report and logged, and the remaining due systems still run: one faulty
// domain system must not halt the whole world.
func (m *SystemManager) RunSystems(wCtx *worldContext, clk *clock.Clock, tickReport *report.TickReport) {
	allSystemsStartTime := time.Now()
	baseLogger := wCtx.Logger()

	for _, r := range m.systems {
		if !clk.IsDue(r.freq) {
			continue
		}
		m.currentSystem = r.name

		// Inject the system name into the logger and swap in the system's
		// private RNG substream.
		wCtx.setLogger(baseLogger.With().Str("system", r.name).Logger())
		wCtx.setRand(r.rand)

		systemStartTime := time.Now()
		err := m.runIsolated(r, wCtx)
		run := report.SystemRun{
			Name:      r.name,
			Frequency: r.freq,
			Duration:  time.Since(systemStartTime),
		}
		if err != nil {
			run.Error = eris.ToString(err, true)
			wCtx.Logger().Error().Err(err).Msgf("system %s failed; continuing tick", r.name)
		}
		tickReport.AddSystemRun(run)

		statsd.EmitTickStat(systemStartTime, r.name)
	}

	wCtx.setLogger(*baseLogger)
	m.currentSystem = noActiveSystemName
	statsd.EmitTickStat(allSystemsStartTime, "all_systems")
}

// runIsolated converts a panicking system into an error so the scheduler can
// continue with the remaining due systems.
func (m *SystemManager) runIsolated(r *registeredSystem, wCtx WorldContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = eris.Errorf("system %s panicked: %v", r.name, rec)
		}
	}()
	if err := r.sys.Execute(wCtx); err != nil {
		return eris.Wrapf(err, "system %s generated an error", r.name)
	}
	return nil
}

// RunCleanups runs the Cleanup hook of every system that has one, in
// execution order.
func (m *SystemManager) RunCleanups() {
	for _, r := range m.systems {
		if cleaner, ok := r.sys.(Cleaner); ok {
			cleaner.Cleanup()
		}
	}
}

// GetRegisteredSystemNames returns the system names: execution order once the
// world state is loaded, registration order before that.
func (m *SystemManager) GetRegisteredSystemNames() []string {
	names := make([]string, len(m.systems))
	for i, r := range m.systems {
		names[i] = r.name
	}
	return names
}

// GetCurrentSystem returns the name of the currently running system, or an
// empty string when no system is running. The tick panic handler uses it for
// context.
func (m *SystemManager) GetCurrentSystem() string {
	return m.currentSystem
}

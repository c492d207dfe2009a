package worldsim

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/component"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/counter"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	ecslog "github.com/NatureFlyWoW/fantasy-world-sim-sub001/log"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/rng"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/state"
)

// ErrReadOnlyContext is returned when a read-only context is asked to mutate
// world state or emit events.
var ErrReadOnlyContext = eris.New("world context is read-only")

// WorldContext is the view of the world handed to a system on every tick it
// is due: the entity/component store, the clock, and the event bus, plus the
// system's private RNG substream, its tagged logger, and the world's shared
// counters.
type WorldContext interface {
	// CurrentTick returns the tick being executed.
	CurrentTick() uint64
	// Date returns the calendar projection of the current tick.
	Date() clock.Date
	// Calendar returns the world's calendar constants.
	Calendar() clock.Calendar
	// Namespace returns the world's namespace.
	Namespace() string
	// Logger returns a logger tagged with the executing system's name.
	Logger() *zerolog.Logger
	// Rand returns the executing system's private RNG substream. Sharing it
	// with another system silently breaks reproducibility; don't.
	Rand() *rng.Source
	// Counters returns the world's named id counters.
	Counters() *counter.Set
	// EmitEvent validates the draft, stamps it with the next event id and
	// the current tick, appends it to the event log, and dispatches it to
	// all subscribers before returning.
	EmitEvent(event.Draft) (*event.Event, error)
	// EventLog returns the world's full event history.
	EventLog() *event.Log
	// Bus returns the world's event bus, for systems that react to events
	// emitted by systems running earlier in the tick.
	Bus() *event.Bus

	// These methods are intentionally private so other packages cannot
	// sidestep the registration and read-only rules.
	store() *state.Store
	components() *component.Manager
	setLogger(zerolog.Logger)
	setRand(*rng.Source)
	isReadOnly() bool
}

var _ WorldContext = (*worldContext)(nil)
var _ event.Emitter = (*worldContext)(nil)

type worldContext struct {
	world    *World
	logger   *zerolog.Logger
	rand     *rng.Source
	readOnly bool
}

// newWorldContextForTick creates the read-write context injected into
// systems during a tick.
func newWorldContextForTick(world *World) *worldContext {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		rand:     world.rand,
		readOnly: false,
	}
}

// NewReadOnlyWorldContext creates a context for inspection layers. Mutating
// operations and event emission fail with ErrReadOnlyContext, and the RNG is
// a throwaway substream so inspection draws can never perturb the
// simulation.
func NewReadOnlyWorldContext(world *World) WorldContext {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		rand:     world.rand.Fork("readonly"),
		readOnly: true,
	}
}

func (ctx *worldContext) CurrentTick() uint64 {
	return ctx.world.clock.CurrentTick()
}

func (ctx *worldContext) Date() clock.Date {
	return ctx.world.clock.Date()
}

func (ctx *worldContext) Calendar() clock.Calendar {
	return ctx.world.clock.Calendar()
}

func (ctx *worldContext) Namespace() string {
	return ctx.world.Namespace()
}

func (ctx *worldContext) Logger() *zerolog.Logger {
	return ctx.logger
}

func (ctx *worldContext) Rand() *rng.Source {
	return ctx.rand
}

func (ctx *worldContext) Counters() *counter.Set {
	return ctx.world.counters
}

func (ctx *worldContext) EmitEvent(draft event.Draft) (*event.Event, error) {
	if ctx.readOnly {
		return nil, eris.Wrap(ErrReadOnlyContext, "cannot emit events")
	}
	ev, err := ctx.world.eventFactory.Create(draft)
	if err != nil {
		return nil, err
	}
	if err := ctx.world.eventBus.Emit(ev); err != nil {
		return nil, err
	}
	ecslog.WorldEvent(ctx.logger, ev)
	return ev, nil
}

func (ctx *worldContext) EventLog() *event.Log {
	return ctx.world.eventLog
}

func (ctx *worldContext) Bus() *event.Bus {
	return ctx.world.eventBus
}

func (ctx *worldContext) store() *state.Store {
	return ctx.world.store
}

func (ctx *worldContext) components() *component.Manager {
	return ctx.world.componentManager
}

func (ctx *worldContext) setLogger(logger zerolog.Logger) {
	ctx.logger = &logger
}

func (ctx *worldContext) setRand(rand *rng.Source) {
	ctx.rand = rand
}

func (ctx *worldContext) isReadOnly() bool {
	return ctx.readOnly
}

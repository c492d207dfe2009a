package worldsim

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/archive"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/component"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/counter"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	ecslog "github.com/NatureFlyWoW/fantasy-world-sim-sub001/log"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/report"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/rng"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/server"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/state"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/statsd"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/telemetry"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/worldstage"
)

const defaultTickInterval = time.Second

// World is one simulation instance: the entity/component store, the clock,
// the scheduler, the event machinery, and the optional inspection and
// archive surfaces, all sharing a single deterministic RNG tree.
type World struct {
	namespace types.Namespace
	runID     string
	cfg       *WorldConfig
	logger    zerolog.Logger

	store            *state.Store
	clock            *clock.Clock
	rand             *rng.Source
	counters         *counter.Set
	componentManager *component.Manager
	systemManager    *SystemManager
	eventFactory     *event.Factory
	eventLog         *event.Log
	eventBus         *event.Bus
	eventTypes       *event.Types
	worldStage       *worldstage.Manager
	reportHistory    *report.History

	server         *server.Server
	serverOptions  []server.Option
	serverDisabled bool
	worldArchive   *archive.Archive
	telemetry      *telemetry.Manager

	tickChannel                  <-chan time.Time
	tickDoneChannel              chan<- uint64
	addChannelWaitingForNextTick chan chan struct{}
}

var _ server.Provider = (*World)(nil)
var _ ecslog.Loggable = (*World)(nil)

// NewWorld creates a world from the environment configuration plus the given
// options. The world starts in the Init stage; register components, systems,
// and event types, then call LoadWorldState or StartSimulation.
func NewWorld(opts ...WorldOption) (*World, error) {
	configOptions, serverOptions, worldOptions := separateOptions(opts)

	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}
	for _, opt := range configOptions {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world config")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	w := &World{
		namespace:     types.Namespace(cfg.Namespace),
		runID:         uuid.New().String(),
		cfg:           cfg,
		logger:        logger,
		store:         state.NewStore(),
		clock:         clock.New(clock.Calendar{DaysPerMonth: cfg.DaysPerMonth, MonthsPerYear: cfg.MonthsPerYear}),
		rand:          rng.New(cfg.Seed),
		counters:      counter.NewSet(),
		systemManager: NewSystemManager(),
		eventLog:      event.NewLog(),
		eventTypes:    event.NewTypes(),
		worldStage:    worldstage.NewManager(),
		reportHistory: report.NewHistory(cfg.ReportHistorySize),
		serverOptions: serverOptions,

		addChannelWaitingForNextTick: make(chan chan struct{}),
	}
	w.eventFactory = event.NewFactory(w.clock)
	w.eventBus = event.NewBus(w.eventLog, logger)

	for _, opt := range worldOptions {
		opt(w)
	}

	if cfg.StatsdAddress != "" {
		tags := []string{"namespace:" + cfg.Namespace, "run_id:" + w.runID}
		if err := statsd.Init(cfg.StatsdAddress, tags); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	}
	if cfg.TraceEnabled || cfg.ProfilerEnabled {
		w.telemetry, err = telemetry.New(cfg.TraceEnabled, cfg.ProfilerEnabled)
		if err != nil {
			return nil, eris.Wrap(err, "failed to init telemetry")
		}
	}

	// The component registry validates schemas against storage. By default
	// that storage is in-memory; with an archive configured it lives in
	// Redis, so a restarted world with changed component layouts fails
	// loudly instead of silently diverging from its archived history.
	schemaStorage := component.NewMemorySchemaStorage()
	if cfg.RedisAddress != "" {
		w.worldArchive, err = archive.New(context.Background(), archive.Options{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			Namespace: cfg.Namespace,
			RunID:     w.runID,
		}, logger)
		if err != nil {
			return nil, err
		}
		w.worldArchive.Attach(w.eventBus)
		schemaStorage = archive.NewRedisSchemaStorage(w.worldArchive, cfg.Namespace)
	}
	w.componentManager = component.NewManager(schemaStorage)

	if !w.serverDisabled {
		opts := append([]server.Option{server.WithPort(cfg.Port)}, w.serverOptions...)
		w.server = server.New(w, logger, opts...)
	}

	w.logger.Info().
		Str("namespace", cfg.Namespace).
		Str("run_id", w.runID).
		Uint64("seed", cfg.Seed).
		Msg("world created")
	return w, nil
}

func newLogger(cfg *WorldConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, eris.Wrapf(err, "log level %q is invalid", cfg.LogLevel)
	}
	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}

// LoadWorldState finalizes registration and prepares the world for ticking:
// it locks the system set, sorts it into execution order, forks every
// system's private RNG substream, and runs the Initialize hooks. After a
// successful load the world is in the Ready stage and no further
// registration is possible.
func (w *World) LoadWorldState() error {
	if !w.worldStage.CompareAndSwap(worldstage.Init, worldstage.Starting) {
		return eris.Errorf("world state was already loaded (stage %s)", w.worldStage.Current())
	}

	w.systemManager.Finalize(w.rand)
	ecslog.World(&w.logger, w, zerolog.InfoLevel)

	wCtx := newWorldContextForTick(w)
	if err := w.systemManager.RunInitializers(wCtx); err != nil {
		return err
	}

	w.worldStage.Store(worldstage.Ready)
	return nil
}

// Tick advances the clock by one and runs every due system in execution
// order, then finalizes the tick report, mirrors the tick to the archive,
// and pushes the fresh events to stream subscribers. Individual system
// failures are isolated into the report; Tick itself only fails on kernel
// errors.
func (w *World) Tick(ctx context.Context) error {
	switch stage := w.worldStage.Current(); stage {
	case worldstage.Ready, worldstage.Running, worldstage.ShuttingDown:
	default:
		return eris.Errorf("world cannot tick in stage %s", stage)
	}

	span, ctx := tracer.StartSpanFromContext(ctx, "worldsim.span.tick")
	defer span.Finish()

	startTime := time.Now()
	defer func() {
		if panicValue := recover(); panicValue != nil {
			w.logger.Error().
				Str("system", w.systemManager.GetCurrentSystem()).
				Msgf("tick %d panicked", w.clock.CurrentTick())
			panic(panicValue)
		}
	}()

	w.clock.Advance()
	tick := w.clock.CurrentTick()
	w.logger.Debug().Uint64("tick", tick).Msg("tick started")

	tickReport := report.NewTickReport(tick)
	lastEventBefore := w.eventLog.LastID()

	wCtx := newWorldContextForTick(w)
	w.systemManager.RunSystems(wCtx, w.clock, tickReport)

	newEvents := w.eventLog.Since(lastEventBefore)
	tickReport.SetEventRange(lastEventBefore, w.eventLog.LastID(), len(newEvents))
	if err := w.reportHistory.Push(tickReport); err != nil {
		return err
	}

	if w.worldArchive != nil {
		if err := w.worldArchive.FlushTick(ctx, tick); err != nil {
			// The in-memory history is still intact; a lossy archive is
			// preferable to a halted world.
			w.logger.Warn().Err(err).Uint64("tick", tick).Msg("archive flush failed")
		}
	}
	if w.server != nil {
		w.server.BroadcastTick(tickReport, newEvents)
	}

	statsd.EmitTickStat(startTime, "full_tick")
	return nil
}

// StartSimulation loads the world state, starts the inspection server, and
// blocks running the tick loop until Shutdown is called or a termination
// signal arrives. Each receive on the tick channel triggers one tick; by
// default that is a wall-clock second.
func (w *World) StartSimulation() error {
	if err := w.LoadWorldState(); err != nil {
		return err
	}

	if w.server != nil {
		go func() {
			if err := w.server.Serve(); err != nil {
				w.logger.Error().Err(err).Msg("inspection server failed")
			}
		}()
	}
	w.handleShutdownSignals()

	if w.tickChannel == nil {
		w.tickChannel = time.Tick(defaultTickInterval)
	}
	w.worldStage.CompareAndSwap(worldstage.Ready, worldstage.Running)
	w.logger.Info().Msg("simulation started")

	var waitingChs []chan struct{}
	shuttingDown := w.worldStage.NotifyOnStage(worldstage.ShuttingDown)
	for {
		select {
		case <-shuttingDown:
			closeAllChannels(waitingChs)
			w.worldStage.Store(worldstage.ShutDown)
			w.logger.Info().Msg("simulation stopped")
			return nil
		case _, ok := <-w.tickChannel:
			if !ok {
				w.worldStage.Store(worldstage.ShuttingDown)
				continue
			}
			if err := w.Tick(context.Background()); err != nil {
				w.worldStage.Store(worldstage.ShuttingDown)
				return eris.Wrap(err, "tick failed")
			}
			closeAllChannels(waitingChs)
			waitingChs = waitingChs[:0]
			if w.tickDoneChannel != nil {
				w.tickDoneChannel <- w.clock.CurrentTick()
			}
		case ch := <-w.addChannelWaitingForNextTick:
			waitingChs = append(waitingChs, ch)
		}
	}
}

func closeAllChannels(chs []chan struct{}) {
	for _, ch := range chs {
		close(ch)
	}
}

// WaitForNextTick blocks until at least one complete tick has happened after
// this call. It returns false if the world shut down before that tick
// completed. Only meaningful while StartSimulation is running.
func (w *World) WaitForNextTick() (success bool) {
	startTick := w.clock.CurrentTick()
	ch := make(chan struct{})
	select {
	case w.addChannelWaitingForNextTick <- ch:
	case <-w.worldStage.NotifyOnStage(worldstage.ShutDown):
		return false
	}
	<-ch
	return w.clock.CurrentTick() > startTick
}

// handleShutdownSignals spawns a goroutine that triggers a graceful shutdown
// on SIGINT/SIGTERM.
func (w *World) handleShutdownSignals() {
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range signalChannel {
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				if err := w.Shutdown(); err != nil {
					w.logger.Error().Err(err).Msg("world did not shut down cleanly")
				}
				return
			}
		}
	}()
}

// Shutdown stops the tick loop, runs every system's Cleanup hook, and closes
// the inspection server, the archive, and the telemetry manager. Safe to
// call whether or not StartSimulation is running.
func (w *World) Shutdown() error {
	w.logger.Info().Msg("shutting down")
	if w.worldStage.CompareAndSwap(worldstage.Running, worldstage.ShuttingDown) {
		// The tick loop notices the stage change, finishes the tick in
		// flight, and stores ShutDown.
		<-w.worldStage.NotifyOnStage(worldstage.ShutDown)
	} else {
		w.worldStage.Store(worldstage.ShutDown)
	}

	w.systemManager.RunCleanups()
	if w.server != nil {
		if err := w.server.Shutdown(); err != nil {
			return err
		}
	}
	if w.worldArchive != nil {
		if err := w.worldArchive.Close(); err != nil {
			return err
		}
	}
	if w.telemetry != nil {
		if err := w.telemetry.Shutdown(); err != nil {
			return err
		}
	}
	w.logger.Info().Msg("shutdown complete")
	return nil
}

// Namespace returns the world's namespace.
func (w *World) Namespace() string {
	return string(w.namespace)
}

// RunID returns the uuid of this world instance, unique per process run.
func (w *World) RunID() string {
	return w.runID
}

// CurrentTick returns the tick of the last completed (or in-progress) tick;
// 0 before the first tick.
func (w *World) CurrentTick() uint64 {
	return w.clock.CurrentTick()
}

// CurrentDate returns the calendar projection of the current tick.
func (w *World) CurrentDate() clock.Date {
	return w.clock.Date()
}

// Calendar returns the world's calendar constants.
func (w *World) Calendar() clock.Calendar {
	return w.clock.Calendar()
}

// EventLog returns the world's append-only event history.
func (w *World) EventLog() *event.Log {
	return w.eventLog
}

// Bus returns the world's event bus for out-of-system subscribers
// (chroniclers, archives, test assertions).
func (w *World) Bus() *event.Bus {
	return w.eventBus
}

// Counters returns the world's named deterministic counters.
func (w *World) Counters() *counter.Set {
	return w.counters
}

// ReportForTick returns the execution report of a recent tick.
func (w *World) ReportForTick(tick uint64) (*report.TickReport, error) {
	return w.reportHistory.ReportForTick(tick)
}

// CurrentReport returns the report of the most recent completed tick, or nil
// before the first tick.
func (w *World) CurrentReport() *report.TickReport {
	return w.reportHistory.Current()
}

// RegisteredComponents returns the metadata of every registered component in
// registration order.
func (w *World) RegisteredComponents() []types.ComponentMetadata {
	return w.componentManager.GetComponents()
}

// RegisteredSystemNames returns the registered system names; execution order
// once the world state is loaded.
func (w *World) RegisteredSystemNames() []string {
	return w.systemManager.GetRegisteredSystemNames()
}

// RegisteredEventTypes returns the registered typed events in registration
// order.
func (w *World) RegisteredEventTypes() []event.TypeInfo {
	return w.eventTypes.All()
}

// StoreReader returns a read-only view of the entity/component store.
func (w *World) StoreReader() state.Reader {
	return w.store.ToReadOnly()
}

// IsRunning reports whether the simulation loop is ticking.
func (w *World) IsRunning() bool {
	return w.worldStage.Current() == worldstage.Running
}

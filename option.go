package worldsim

import (
	"time"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/clock"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/server"
)

// WorldOption is a function that can be used to configure a World. A single
// option may touch the config, the inspection server, or the World itself;
// separateOptions splits a list of them into those three groups.
type WorldOption struct {
	configOption func(*WorldConfig)
	serverOption server.Option
	worldOption  func(*World)
}

// WithNamespace sets the world namespace, overriding WORLDSIM_NAMESPACE.
func WithNamespace(namespace string) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.Namespace = namespace
		},
	}
}

// WithSeed sets the root RNG seed, overriding WORLDSIM_SEED.
func WithSeed(seed uint64) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.Seed = seed
		},
	}
}

// WithCalendar sets the calendar constants for every tick-to-date
// conversion in this world.
func WithCalendar(calendar clock.Calendar) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.DaysPerMonth = calendar.DaysPerMonth
			cfg.MonthsPerYear = calendar.MonthsPerYear
		},
	}
}

// WithPort sets the inspection server port, overriding WORLDSIM_PORT.
func WithPort(port string) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.Port = port
		},
	}
}

// WithPrettyLog enables zerolog's console writer.
func WithPrettyLog() WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.LogPretty = true
		},
	}
}

// WithReportHistorySize sets how many ticks of execution reports are
// retained.
func WithReportHistorySize(size int) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.ReportHistorySize = size
		},
	}
}

// WithServerCORS enables CORS on the inspection server.
func WithServerCORS() WorldOption {
	return WorldOption{
		serverOption: server.WithCORS(),
	}
}

// WithServerDisabled disables the inspection server entirely. Tests that
// drive Tick directly use this.
func WithServerDisabled() WorldOption {
	return WorldOption{
		worldOption: func(w *World) {
			w.serverDisabled = true
		},
	}
}

// WithTickChannel sets the channel that drives the simulation loop. Every
// value received triggers one tick, so time.Tick gives a wall-clock-driven
// world and a manual channel gives a test-driven one.
func WithTickChannel(ch <-chan time.Time) WorldOption {
	return WorldOption{
		worldOption: func(w *World) {
			w.tickChannel = ch
		},
	}
}

// WithTickDoneChannel sets a channel that receives the tick number after
// every completed tick.
func WithTickDoneChannel(ch chan uint64) WorldOption {
	return WorldOption{
		worldOption: func(w *World) {
			w.tickDoneChannel = ch
		},
	}
}

func separateOptions(opts []WorldOption) (
	configOptions []func(*WorldConfig),
	serverOptions []server.Option,
	worldOptions []func(*World),
) {
	for _, opt := range opts {
		if opt.configOption != nil {
			configOptions = append(configOptions, opt.configOption)
		}
		if opt.serverOption != nil {
			serverOptions = append(serverOptions, opt.serverOption)
		}
		if opt.worldOption != nil {
			worldOptions = append(worldOptions, opt.worldOption)
		}
	}
	return configOptions, serverOptions, worldOptions
}

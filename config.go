package worldsim

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

const (
	DefaultNamespace         = "world"
	DefaultSeed              = uint64(1)
	DefaultLogLevel          = "info"
	DefaultPort              = "4040"
	DefaultReportHistorySize = 10
)

// WorldConfig holds the environment-driven configuration of a world.
// Every field has a working default; a bare `NewWorld()` with no environment
// set up produces a runnable world.
type WorldConfig struct {
	// Namespace distinguishes this world from others sharing infrastructure
	// (archive keys, metric tags).
	Namespace string `config:"WORLDSIM_NAMESPACE"`
	// Seed is the root of every RNG substream in the world. Two runs with
	// the same seed and the same registered systems produce identical
	// histories.
	Seed uint64 `config:"WORLDSIM_SEED"`
	// LogLevel is a zerolog level string (trace, debug, info, warn, error).
	LogLevel string `config:"WORLDSIM_LOG_LEVEL"`
	// LogPretty switches zerolog to console output.
	LogPretty bool `config:"WORLDSIM_LOG_PRETTY"`
	// Port is the inspection server's HTTP port.
	Port string `config:"WORLDSIM_PORT"`
	// StatsdAddress enables statsd metrics when non-empty.
	StatsdAddress string `config:"WORLDSIM_STATSD_ADDRESS"`
	// TraceEnabled turns on the datadog tracer for tick spans.
	TraceEnabled bool `config:"WORLDSIM_TRACE_ENABLED"`
	// ProfilerEnabled turns on the datadog continuous profiler.
	ProfilerEnabled bool `config:"WORLDSIM_PROFILER_ENABLED"`
	// RedisAddress enables the Redis history archive when non-empty.
	RedisAddress string `config:"WORLDSIM_REDIS_ADDRESS"`
	// RedisPassword is the password for the archive connection.
	RedisPassword string `config:"WORLDSIM_REDIS_PASSWORD"`
	// DaysPerMonth and MonthsPerYear are the calendar constants used for
	// every tick-to-date conversion in this world.
	DaysPerMonth  uint64 `config:"WORLDSIM_DAYS_PER_MONTH"`
	MonthsPerYear uint64 `config:"WORLDSIM_MONTHS_PER_YEAR"`
	// ReportHistorySize is how many ticks of execution reports are retained.
	ReportHistorySize int `config:"WORLDSIM_REPORT_HISTORY_SIZE"`
}

var defaultConfig = WorldConfig{
	Namespace:         DefaultNamespace,
	Seed:              DefaultSeed,
	LogLevel:          DefaultLogLevel,
	LogPretty:         false,
	Port:              DefaultPort,
	StatsdAddress:     "",
	TraceEnabled:      false,
	ProfilerEnabled:   false,
	RedisAddress:      "",
	RedisPassword:     "",
	DaysPerMonth:      30,
	MonthsPerYear:     12,
	ReportHistorySize: DefaultReportHistorySize,
}

// loadWorldConfig reads the configuration from the environment. Fields with
// no environment variable set keep their defaults.
func loadWorldConfig() (*WorldConfig, error) {
	cfg := defaultConfig
	if err := config.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to load world config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world config")
	}
	return &cfg, nil
}

// Validate rejects configurations that would break the kernel's invariants.
func (cfg *WorldConfig) Validate() error {
	if err := types.Namespace(cfg.Namespace).Validate(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return eris.Wrapf(err, "log level %q is invalid", cfg.LogLevel)
	}
	if cfg.DaysPerMonth < 1 || cfg.MonthsPerYear < 1 {
		return eris.New("calendar constants must be at least 1")
	}
	if cfg.ReportHistorySize < 1 {
		return eris.New("report history size must be at least 1")
	}
	return nil
}

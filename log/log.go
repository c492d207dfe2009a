// Package log renders structured summaries of a world's registered
// components, systems, and event types through zerolog.
package log

import (
	"github.com/rs/zerolog"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// Loggable is the view of a world this package needs.
type Loggable interface {
	RegisteredComponents() []types.ComponentMetadata
	RegisteredSystemNames() []string
	RegisteredEventTypes() []event.TypeInfo
}

func loadComponentIntoArrayLogger(
	component types.ComponentMetadata,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(component.ID()))
	dictLogger = dictLogger.Str("component_name", component.Name())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.RegisteredComponents()
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, comp := range components {
		arrayLogger = loadComponentIntoArrayLogger(comp, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadSystemsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	systems := target.RegisteredSystemNames()
	zeroLoggerEvent.Int("total_systems", len(systems))
	arrayLogger := zerolog.Arr()
	for _, sysName := range systems {
		arrayLogger = arrayLogger.Str(sysName)
	}
	return zeroLoggerEvent.Array("systems", arrayLogger)
}

func loadEventTypesToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	eventTypes := target.RegisteredEventTypes()
	zeroLoggerEvent.Int("total_event_types", len(eventTypes))
	arrayLogger := zerolog.Arr()
	for _, info := range eventTypes {
		dictLogger := zerolog.Dict()
		dictLogger = dictLogger.Str("subtype", info.Subtype)
		dictLogger = dictLogger.Str("category", string(info.Category))
		arrayLogger = arrayLogger.Dict(dictLogger)
	}
	return zeroLoggerEvent.Array("event_types", arrayLogger)
}

// Components logs all registered components.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Systems logs all registered systems.
func Systems(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadSystemsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// World logs everything about the world (components, systems, event types).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadSystemsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadEventTypesToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// WorldEvent logs a single emitted world event at debug level.
func WorldEvent(logger *zerolog.Logger, ev *event.Event) {
	logger.Debug().
		Uint64("event_id", uint64(ev.ID)).
		Str("category", string(ev.Category)).
		Str("subtype", ev.Subtype).
		Uint64("timestamp", ev.Timestamp).
		Int("significance", ev.Significance).
		Int("participants", len(ev.Participants)).
		Msg("event emitted")
}

// CreateSystemLogger creates a sub logger with the entry {"system": systemName}.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	newLogger := logger.With().Str("system", systemName).Logger()
	return &newLogger
}

// CreateTraceLogger creates a trace logger. Using a single id you can use this logger to follow and log a data path.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}

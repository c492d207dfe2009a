// Package telemetry wires the simulation's tick spans into Datadog. The
// tracer provider is installed globally through the otel bridge, so the spans
// opened around each tick land in Datadog when tracing is enabled and are
// no-ops when it is not.
package telemetry

import (
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// Manager owns the lifecycle of the tracer provider and the continuous
// profiler. A world holds at most one.
type Manager struct {
	tracerProvider       *ddotel.TracerProvider
	profilerShutdownFunc func()
}

// New sets up the W3C propagator and, per the flags, the Datadog tracer
// provider and continuous profiler.
func New(enableTrace bool, enableProfiler bool) (*Manager, error) {
	tm := &Manager{}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if enableTrace {
		tm.tracerProvider = ddotel.NewTracerProvider(tracer.WithRuntimeMetrics())
		otel.SetTracerProvider(tm.tracerProvider)
	}

	if enableProfiler {
		err := profiler.Start(
			profiler.WithProfileTypes(
				profiler.CPUProfile,
				profiler.HeapProfile,
			),
		)
		if err != nil {
			return nil, eris.Wrap(err, "failed to start the profiler")
		}
		tm.profilerShutdownFunc = profiler.Stop
	}

	return tm, nil
}

// Shutdown stops whatever New started. Safe to call on a Manager with neither
// tracing nor profiling enabled.
func (tm *Manager) Shutdown() error {
	if tm.profilerShutdownFunc != nil {
		tm.profilerShutdownFunc()
	}
	if tm.tracerProvider != nil {
		return eris.Wrap(tm.tracerProvider.Shutdown(), "failed to shut down the tracer")
	}
	return nil
}

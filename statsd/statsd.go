// Package statsd wraps the metrics the kernel emits around tick execution.
// The datadog client hides behind this package so a metrics backend change
// touches exactly one file. Before Init (or without one) every emission is a
// no-op.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

// Client returns the active statsd client.
func Client() ddstatsd.ClientInterface {
	return client
}

// Init connects the global client. All metrics are prefixed "worldsim" and
// carry the given tags (typically the namespace).
func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("statsd address must not be empty")
	}
	opts := []ddstatsd.Option{ddstatsd.WithNamespace("worldsim")}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrapf(err, "failed to connect to statsd at %s", address)
	}
	client = newClient
	return nil
}

// EmitTickStat emits the time elapsed since start as a "tick" timing, tagged
// with the stage it covers (a system name, "all_systems", "full_tick").
func EmitTickStat(start time.Time, stage string) {
	if err := client.Timing("tick", time.Since(start), []string{stage}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit tick stat: %v", err)
	}
}

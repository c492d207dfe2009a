// Package testutils manages a deterministic World per test, plus a handful
// of sample components and systems the package tests share.
package testutils

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
)

// Fixture owns one World for the lifetime of a test. The world's inspection
// server is disabled and its configuration comes from t.Setenv, so parallel
// test binaries never collide and every run is reproducible.
type Fixture struct {
	testing.TB
	World *worldsim.World

	loaded bool
}

// NewTestFixture creates a World for the given test. Pass a miniredis
// instance to exercise the history archive, or nil to run without one.
// Options are forwarded to NewWorld; WithSeed is the usual one.
func NewTestFixture(t testing.TB, redis *miniredis.Miniredis, opts ...worldsim.WorldOption) *Fixture {
	t.Setenv("WORLDSIM_NAMESPACE", "testworld")
	t.Setenv("WORLDSIM_SEED", "42")
	t.Setenv("WORLDSIM_LOG_LEVEL", "error")
	if redis != nil {
		t.Setenv("WORLDSIM_REDIS_ADDRESS", redis.Addr())
	}

	opts = append([]worldsim.WorldOption{worldsim.WithServerDisabled()}, opts...)
	world, err := worldsim.NewWorld(opts...)
	assert.NilError(t, err)

	f := &Fixture{
		TB:    t,
		World: world,
	}
	t.Cleanup(func() {
		assert.NilError(t, world.Shutdown())
	})
	return f
}

// LoadWorldState loads the world state exactly once, no matter how many
// times it is called.
func (f *Fixture) LoadWorldState() {
	if f.loaded {
		return
	}
	assert.NilError(f, f.World.LoadWorldState())
	f.loaded = true
}

// DoTick executes one tick, loading the world state first if the test has
// not done so yet.
func (f *Fixture) DoTick() {
	f.LoadWorldState()
	assert.NilError(f, f.World.Tick(context.Background()))
}

// DoTicks executes n ticks.
func (f *Fixture) DoTicks(n int) {
	for i := 0; i < n; i++ {
		f.DoTick()
	}
}

package testutils_test

import (
	"testing"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/testutils"
)

func TestFixtureLoadsStateExactlyOnce(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	f.LoadWorldState()
	f.LoadWorldState()
	f.DoTick()
	assert.Equal(t, f.World.CurrentTick(), uint64(1))
}

func TestSampleWorldGrows(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	testutils.RegisterSampleWorld(f)

	var settlement worldsim.EntityID
	boot := worldsim.NewSystem("boot", 1, -1, func(wCtx worldsim.WorldContext) error {
		if wCtx.CurrentTick() != 1 {
			return nil
		}
		var err error
		settlement, err = worldsim.Create(wCtx,
			testutils.Population{Count: 100},
			testutils.Settlement{Founded: wCtx.CurrentTick()},
		)
		return err
	})
	assert.NilError(t, worldsim.RegisterSystems(f.World, boot))

	f.DoTicks(5)

	roCtx := worldsim.NewReadOnlyWorldContext(f.World)
	pop, err := worldsim.GetComponent[testutils.Population](roCtx, settlement)
	assert.NilError(t, err)
	assert.Equal(t, pop.Count, 105)

	town, err := worldsim.GetComponent[testutils.Settlement](roCtx, settlement)
	assert.NilError(t, err)
	assert.Equal(t, town.Founded, uint64(1))
}

package worldsim_test

import (
	"testing"
	"time"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/testutils"
)

// chaosSystem runs every tick, creates entities and emits events driven
// entirely by its private RNG substream. Two runs with the same seed must
// produce byte-identical histories through it.
func chaosSystem() worldsim.System {
	return worldsim.NewSystem("chaos", 1, 0, func(wCtx worldsim.WorldContext) error {
		if wCtx.Rand().Chance(0.4) {
			_, err := worldsim.Create(wCtx, testutils.Population{Count: wCtx.Rand().IntBetween(1, 100)})
			if err != nil {
				return err
			}
		}
		ids, err := worldsim.Query(wCtx, "population")
		if err != nil {
			return err
		}
		draft := event.Draft{
			Category:     event.SystemEvent,
			Subtype:      "chaos.struck",
			Significance: wCtx.Rand().IntBetween(0, 100),
		}
		if len(ids) > 0 {
			draft.Participants = append(draft.Participants, ids[wCtx.Rand().Range(len(ids))])
		}
		_, err = wCtx.EmitEvent(draft)
		return err
	})
}

func serializedHistory(t *testing.T, w *worldsim.World) string {
	t.Helper()
	bz, err := codec.Encode(w.EventLog().All())
	assert.NilError(t, err)
	return string(bz)
}

func TestSameSeedProducesIdenticalHistories(t *testing.T) {
	run := func(opts ...worldsim.WorldOption) string {
		f := testutils.NewTestFixture(t, nil, opts...)
		worldsim.MustRegisterComponent[testutils.Population](f.World)
		assert.NilError(t, worldsim.RegisterSystems(f.World, chaosSystem()))
		f.DoTicks(45)
		return serializedHistory(t, f.World)
	}

	first := run(worldsim.WithSeed(42))
	second := run(worldsim.WithSeed(42))
	assert.Equal(t, first, second)
}

func TestDifferentSeedsDiverge(t *testing.T) {
	run := func(opts ...worldsim.WorldOption) string {
		f := testutils.NewTestFixture(t, nil, opts...)
		worldsim.MustRegisterComponent[testutils.Population](f.World)
		assert.NilError(t, worldsim.RegisterSystems(f.World, chaosSystem()))
		f.DoTicks(45)
		return serializedHistory(t, f.World)
	}

	first := run(worldsim.WithSeed(42))
	second := run(worldsim.WithSeed(7))
	assert.Assert(t, first != second)
}

func TestSystemFrequencies(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	var daily, monthly int
	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("daily", 1, 0, func(worldsim.WorldContext) error {
			daily++
			return nil
		}),
		worldsim.NewSystem("monthly", 30, 0, func(worldsim.WorldContext) error {
			monthly++
			return nil
		}),
	))

	f.DoTicks(90)
	assert.Equal(t, daily, 90)
	assert.Equal(t, monthly, 3)
	assert.Equal(t, f.World.CurrentTick(), uint64(90))
}

func TestExecutionOrderIgnoresRegistrationOrder(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	var ran []string
	record := func(name string) func(worldsim.WorldContext) error {
		return func(worldsim.WorldContext) error {
			ran = append(ran, name)
			return nil
		}
	}
	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("late", 1, 50, record("late")),
		worldsim.NewSystem("early", 1, 1, record("early")),
		worldsim.NewSystem("tiebreak_b", 1, 10, record("tiebreak_b")),
		worldsim.NewSystem("tiebreak_a", 1, 10, record("tiebreak_a")),
	))

	f.DoTick()
	assert.DeepEqual(t, ran, []string{"early", "tiebreak_b", "tiebreak_a", "late"})
	assert.DeepEqual(t, f.World.RegisteredSystemNames(),
		[]string{"early", "tiebreak_b", "tiebreak_a", "late"})
}

func TestFailingSystemIsIsolated(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	var reached bool
	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("doomed", 1, 0, func(worldsim.WorldContext) error {
			panic("the dam broke")
		}),
		worldsim.NewSystem("survivor", 1, 1, func(worldsim.WorldContext) error {
			reached = true
			return nil
		}),
	))

	f.DoTick()
	assert.True(t, reached)

	report := f.World.CurrentReport()
	assert.NotNil(t, report)
	assert.DeepEqual(t, report.FailedSystems(), []string{"doomed"})
}

func TestTickReportRecordsEventRange(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("talkative", 1, 0, func(wCtx worldsim.WorldContext) error {
			for i := 0; i < 2; i++ {
				_, err := wCtx.EmitEvent(event.Draft{
					Category:     event.SystemEvent,
					Subtype:      "noise.made",
					Significance: 1,
				})
				if err != nil {
					return err
				}
			}
			return nil
		}),
	))

	f.DoTicks(2)
	report, err := f.World.ReportForTick(2)
	assert.NilError(t, err)
	assert.Equal(t, report.EventsEmitted, 2)
	assert.Equal(t, report.FirstEventID, event.ID(3))
	assert.Equal(t, report.LastEventID, event.ID(4))
}

func TestEventTimestampsMatchTheTick(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("stamper", 1, 0, func(wCtx worldsim.WorldContext) error {
			ev, err := wCtx.EmitEvent(event.Draft{
				Category:     event.SystemEvent,
				Subtype:      "stamp.made",
				Significance: 1,
			})
			if err != nil {
				return err
			}
			if ev.Timestamp != wCtx.CurrentTick() {
				panic("timestamp drifted from the clock")
			}
			return nil
		}),
	))

	f.DoTicks(3)
	for i, ev := range f.World.EventLog().All() {
		assert.Equal(t, ev.Timestamp, uint64(i+1))
	}
}

func TestRegistrationAfterLoadIsRejected(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	f.LoadWorldState()

	err := worldsim.RegisterComponent[testutils.Population](f.World)
	assert.ErrorContains(t, err, "cannot register components")

	err = worldsim.RegisterSystems(f.World, testutils.GrowthSystem())
	assert.ErrorContains(t, err, "cannot register systems")

	err = worldsim.RegisterEventType(f.World, testutils.FoundingEvent)
	assert.ErrorContains(t, err, "cannot register event types")

	assert.ErrorContains(t, f.World.LoadWorldState(), "already loaded")
}

func TestReadOnlyContextBlocksMutation(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	worldsim.MustRegisterComponent[testutils.Population](f.World)
	f.LoadWorldState()

	roCtx := worldsim.NewReadOnlyWorldContext(f.World)

	_, err := worldsim.Create(roCtx, testutils.Population{})
	assert.ErrorIs(t, err, worldsim.ErrReadOnlyContext)

	_, err = roCtx.EmitEvent(event.Draft{
		Category: event.SystemEvent, Subtype: "sneaky.write", Significance: 1,
	})
	assert.ErrorIs(t, err, worldsim.ErrReadOnlyContext)
}

func TestCountersAreSharedAcrossSystems(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)

	var seen []uint64
	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("first", 1, 0, func(wCtx worldsim.WorldContext) error {
			seen = append(seen, wCtx.Counters().Next("war"))
			return nil
		}),
		worldsim.NewSystem("second", 1, 1, func(wCtx worldsim.WorldContext) error {
			seen = append(seen, wCtx.Counters().Next("war"))
			return nil
		}),
	))

	f.DoTick()
	assert.DeepEqual(t, seen, []uint64{1, 2})
	assert.Equal(t, f.World.Counters().Peek("war"), uint64(2))
}

func TestBusSubscribersSeeSystemEvents(t *testing.T) {
	f := testutils.NewTestFixture(t, nil)
	testutils.RegisterSampleWorld(f)

	var founded int
	f.World.Bus().SubscribeSubtype("settlement.founded", func(*event.Event) { founded++ })

	assert.NilError(t, worldsim.RegisterSystems(f.World,
		worldsim.NewSystem("founder", 1, 10, func(wCtx worldsim.WorldContext) error {
			if wCtx.CurrentTick() != 1 {
				return nil
			}
			id, err := worldsim.Create(wCtx, testutils.Settlement{Founded: wCtx.CurrentTick()})
			if err != nil {
				return err
			}
			_, err = testutils.FoundingEvent.Emit(wCtx, testutils.FoundingData{SettlementName: "Duskwell"},
				event.WithParticipants(id),
				event.WithSignificance(50),
			)
			return err
		}),
	))

	f.DoTicks(2)
	assert.Equal(t, founded, 1)
}

func TestStartSimulationDrivenByTickChannel(t *testing.T) {
	tickCh := make(chan time.Time)
	doneCh := make(chan uint64)
	f := testutils.NewTestFixture(t, nil,
		worldsim.WithTickChannel(tickCh),
		worldsim.WithTickDoneChannel(doneCh),
	)
	testutils.RegisterSampleWorld(f)

	go func() {
		if err := f.World.StartSimulation(); err != nil {
			t.Error(err)
		}
	}()

	tickCh <- time.Now()
	assert.Equal(t, <-doneCh, uint64(1))
	tickCh <- time.Now()
	assert.Equal(t, <-doneCh, uint64(2))
	assert.True(t, f.World.IsRunning())

	assert.NilError(t, f.World.Shutdown())
	assert.False(t, f.World.IsRunning())
}

func TestWaitForNextTick(t *testing.T) {
	tickCh := make(chan time.Time)
	f := testutils.NewTestFixture(t, nil, worldsim.WithTickChannel(tickCh))
	testutils.RegisterSampleWorld(f)

	go func() {
		if err := f.World.StartSimulation(); err != nil {
			t.Error(err)
		}
	}()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case tickCh <- time.Now():
			case <-stop:
				return
			}
		}
	}()

	assert.True(t, f.World.WaitForNextTick())
	close(stop)
	assert.NilError(t, f.World.Shutdown())
}

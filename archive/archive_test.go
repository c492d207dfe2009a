package archive_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	worldsim "github.com/NatureFlyWoW/fantasy-world-sim-sub001"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/archive"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/component"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/testutils"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// newReaderArchive opens a second connection to the same run's keys, the way
// an offline chronicler would.
func newReaderArchive(t *testing.T, mr *miniredis.Miniredis, world *worldsim.World) *archive.Archive {
	t.Helper()
	reader, err := archive.New(context.Background(), archive.Options{
		Address:   mr.Addr(),
		Namespace: world.Namespace(),
		RunID:     world.RunID(),
	}, zerolog.Nop())
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, reader.Close())
	})
	return reader
}

// skirmishReporter emits one conflict event per tick, involving entities 1
// and 2 at location 3.
func skirmishReporter() worldsim.System {
	return worldsim.NewSystem("skirmish_reporter", 1, 0, func(wCtx worldsim.WorldContext) error {
		_, err := wCtx.EmitEvent(event.Draft{
			Category:     event.Conflict,
			Subtype:      "skirmish.fought",
			Participants: []worldsim.EntityID{1, 2},
			Location:     3,
			Significance: 30,
		})
		return err
	})
}

func TestArchiveMirrorsTheEventLog(t *testing.T) {
	mr := miniredis.RunT(t)
	f := testutils.NewTestFixture(t, mr)
	assert.NilError(t, worldsim.RegisterSystems(f.World, skirmishReporter()))
	f.DoTicks(3)

	ctx := context.Background()
	reader := newReaderArchive(t, mr, f.World)

	latest, err := reader.LatestTick(ctx)
	assert.NilError(t, err)
	assert.Equal(t, latest, uint64(3))

	ids, err := reader.EventIDs(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, ids, []event.ID{1, 2, 3})

	for _, id := range ids {
		archived, err := reader.EventByID(ctx, id)
		assert.NilError(t, err)
		inMemory, err := f.World.EventLog().ByID(id)
		assert.NilError(t, err)
		assert.Equal(t, archived.ID, inMemory.ID)
		assert.Equal(t, archived.Subtype, inMemory.Subtype)
		assert.Equal(t, archived.Timestamp, inMemory.Timestamp)
		assert.DeepEqual(t, archived.Participants, inMemory.Participants)
	}
}

func TestArchiveIndexesReferencedEntities(t *testing.T) {
	mr := miniredis.RunT(t)
	f := testutils.NewTestFixture(t, mr)
	assert.NilError(t, worldsim.RegisterSystems(f.World, skirmishReporter()))
	f.DoTicks(2)

	ctx := context.Background()
	reader := newReaderArchive(t, mr, f.World)

	// Participants and the location land in the same per-entity index.
	for _, entity := range []types.EntityID{1, 2, 3} {
		ids, err := reader.EventIDsForEntity(ctx, entity)
		assert.NilError(t, err)
		assert.DeepEqual(t, ids, []event.ID{1, 2})
	}

	ids, err := reader.EventIDsForEntity(ctx, 99)
	assert.NilError(t, err)
	assert.Len(t, ids, 0)
}

func TestArchiveLatestTickBeforeAnyFlush(t *testing.T) {
	mr := miniredis.RunT(t)
	f := testutils.NewTestFixture(t, mr)
	f.LoadWorldState()

	latest, err := newReaderArchive(t, mr, f.World).LatestTick(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, latest, uint64(0))
}

func TestArchiveEventByIDMissing(t *testing.T) {
	mr := miniredis.RunT(t)
	f := testutils.NewTestFixture(t, mr)
	f.DoTick()

	_, err := newReaderArchive(t, mr, f.World).EventByID(context.Background(), 404)
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestArchiveRunsDoNotCollide(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	first := testutils.NewTestFixture(t, mr)
	assert.NilError(t, worldsim.RegisterSystems(first.World, skirmishReporter()))
	first.DoTicks(2)

	second := testutils.NewTestFixture(t, mr)
	assert.NilError(t, worldsim.RegisterSystems(second.World, skirmishReporter()))
	second.DoTick()

	firstIDs, err := newReaderArchive(t, mr, first.World).EventIDs(ctx)
	assert.NilError(t, err)
	assert.Len(t, firstIDs, 2)

	secondIDs, err := newReaderArchive(t, mr, second.World).EventIDs(ctx)
	assert.NilError(t, err)
	assert.Len(t, secondIDs, 1)
}

type population struct {
	Count int `json:"count"`
}

func (population) Name() string { return "population" }

// Same component name, different layout. A restarted world registering this
// against the same namespace must be rejected.
type populationV2 struct {
	Count  int `json:"count"`
	Growth int `json:"growth"`
}

func (populationV2) Name() string { return "population" }

func TestRedisSchemaStorageSurvivesRestarts(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	open := func(runID string) *archive.Archive {
		a, err := archive.New(ctx, archive.Options{
			Address:   mr.Addr(),
			Namespace: "testworld",
			RunID:     runID,
		}, zerolog.Nop())
		assert.NilError(t, err)
		t.Cleanup(func() {
			assert.NilError(t, a.Close())
		})
		return a
	}

	storage := archive.NewRedisSchemaStorage(open("run-1"), "testworld")
	_, err := storage.Schema("population")
	assert.ErrorIs(t, err, component.ErrNoSchemaFound)

	manager := component.NewManager(storage)
	meta, err := component.NewComponentMetadata[population]()
	assert.NilError(t, err)
	assert.NilError(t, manager.RegisterComponent(meta))

	// A fresh run with the same layout validates cleanly.
	restarted := component.NewManager(archive.NewRedisSchemaStorage(open("run-2"), "testworld"))
	meta, err = component.NewComponentMetadata[population]()
	assert.NilError(t, err)
	assert.NilError(t, restarted.RegisterComponent(meta))

	// A fresh run with a changed layout is rejected.
	changed := component.NewManager(archive.NewRedisSchemaStorage(open("run-3"), "testworld"))
	metaV2, err := component.NewComponentMetadata[populationV2]()
	assert.NilError(t, err)
	assert.ErrorIs(t, changed.RegisterComponent(metaV2), types.ErrComponentSchemaMismatch)
}

package event_test

import (
	"testing"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/assert"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

type battleData struct {
	AttackerLosses int `json:"attackerLosses"`
	DefenderLosses int `json:"defenderLosses"`
}

// fakeEmitter records the drafts it receives and produces events via a
// factory, like the world context does.
type fakeEmitter struct {
	factory   *event.Factory
	lastDraft event.Draft
}

func (e *fakeEmitter) EmitEvent(draft event.Draft) (*event.Event, error) {
	e.lastDraft = draft
	return e.factory.Create(draft)
}

func TestNewTypePanicsOnBadDeclaration(t *testing.T) {
	assert.Panics(t, func() { event.NewType[battleData]("battle", event.Conflict) })
	assert.Panics(t, func() { event.NewType[battleData]("battle.fought", "weather") })
}

func TestTypedEmitBuildsTheDraft(t *testing.T) {
	battleEvent := event.NewType[battleData]("battle.fought", event.Conflict)
	emitter := &fakeEmitter{factory: event.NewFactory(&fakeTicks{tick: 9})}

	ev, err := battleEvent.Emit(emitter, battleData{AttackerLosses: 3, DefenderLosses: 5},
		event.WithParticipants(1, 2),
		event.WithLocation(3),
		event.WithCauses(7),
		event.WithSignificance(80),
	)
	assert.NilError(t, err)
	assert.Equal(t, ev.Subtype, "battle.fought")
	assert.Equal(t, ev.Category, event.Conflict)
	assert.DeepEqual(t, ev.Participants, []types.EntityID{1, 2})
	assert.Equal(t, ev.Location, types.EntityID(3))
	assert.DeepEqual(t, ev.Causes, []event.ID{7})
	assert.Equal(t, ev.Significance, 80)
	assert.Equal(t, emitter.lastDraft.Subtype, "battle.fought")
}

func TestDecodeDataInMemory(t *testing.T) {
	battleEvent := event.NewType[battleData]("battle.fought", event.Conflict)
	emitter := &fakeEmitter{factory: event.NewFactory(&fakeTicks{})}

	ev, err := battleEvent.Emit(emitter, battleData{AttackerLosses: 3})
	assert.NilError(t, err)

	data, err := battleEvent.DecodeData(ev)
	assert.NilError(t, err)
	assert.Equal(t, data.AttackerLosses, 3)
}

func TestDecodeDataAfterJSONRoundTrip(t *testing.T) {
	battleEvent := event.NewType[battleData]("battle.fought", event.Conflict)
	emitter := &fakeEmitter{factory: event.NewFactory(&fakeTicks{})}

	ev, err := battleEvent.Emit(emitter, battleData{DefenderLosses: 4})
	assert.NilError(t, err)

	bz, err := codec.Encode(ev)
	assert.NilError(t, err)
	rehydrated, err := codec.Decode[event.Event](bz)
	assert.NilError(t, err)

	// After the round trip Data is a generic map, not a battleData.
	data, err := battleEvent.DecodeData(&rehydrated)
	assert.NilError(t, err)
	assert.Equal(t, data.DefenderLosses, 4)
}

func TestDecodeDataRejectsWrongSubtype(t *testing.T) {
	battleEvent := event.NewType[battleData]("battle.fought", event.Conflict)
	emitter := &fakeEmitter{factory: event.NewFactory(&fakeTicks{})}
	ev, err := emitter.EmitEvent(validDraft())
	assert.NilError(t, err)

	_, err = battleEvent.DecodeData(ev)
	assert.ErrorContains(t, err, "does not match")
}

func TestTypesRegistryRejectsDuplicates(t *testing.T) {
	registry := event.NewTypes()
	battleEvent := event.NewType[battleData]("battle.fought", event.Conflict)

	assert.NilError(t, event.RegisterType(registry, battleEvent))
	assert.ErrorContains(t, event.RegisterType(registry, battleEvent), "already registered")
}

func TestTypesRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := event.NewTypes()
	assert.NilError(t, event.RegisterType(registry, event.NewType[battleData]("battle.fought", event.Conflict)))
	assert.NilError(t, event.RegisterType(registry, event.NewType[struct{}]("festival.held", event.Culture)))

	infos := registry.All()
	assert.Len(t, infos, 2)
	assert.Equal(t, infos[0].Subtype, "battle.fought")
	assert.Equal(t, infos[1].Subtype, "festival.held")
	assert.Equal(t, infos[0].Category, event.Conflict)
	assert.NotNil(t, infos[0].DataFields)
}

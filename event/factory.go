package event

import (
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// Draft is the emitter-supplied portion of an event. The factory fills in the
// id and timestamp.
type Draft struct {
	Category     Category
	Subtype      string
	Participants []types.EntityID
	Location     types.EntityID
	Causes       []ID
	Significance int
	Data         any
}

// TickSource provides the timestamp stamped onto new events.
type TickSource interface {
	CurrentTick() uint64
}

// Factory validates drafts and turns them into events with monotonically
// increasing ids. Each world owns exactly one Factory; sharing one across
// worlds would interleave their id spaces.
type Factory struct {
	nextID ID
	ticks  TickSource
}

func NewFactory(ticks TickSource) *Factory {
	return &Factory{nextID: 1, ticks: ticks}
}

// Create validates the draft and returns a fully-formed event stamped with
// the next id and the current tick. Invariant violations (unknown category,
// malformed subtype, out-of-range significance) are loud errors; silently
// patching them up would hide wiring bugs in domain systems.
func (f *Factory) Create(draft Draft) (*Event, error) {
	if !draft.Category.Valid() {
		return nil, eris.Errorf("unknown event category %q", draft.Category)
	}
	if err := ValidateSubtype(draft.Subtype); err != nil {
		return nil, err
	}
	if draft.Significance < MinSignificance || draft.Significance > MaxSignificance {
		return nil, eris.Errorf("significance %d is outside [%d, %d]",
			draft.Significance, MinSignificance, MaxSignificance)
	}

	ev := &Event{
		ID:           f.nextID,
		Category:     draft.Category,
		Subtype:      draft.Subtype,
		Timestamp:    f.ticks.CurrentTick(),
		Participants: append([]types.EntityID{}, draft.Participants...),
		Location:     draft.Location,
		Causes:       append([]ID{}, draft.Causes...),
		Consequences: []ID{},
		Significance: draft.Significance,
		Data:         draft.Data,
	}
	f.nextID++
	return ev, nil
}

// NextID returns the id the next created event will receive.
func (f *Factory) NextID() ID {
	return f.nextID
}

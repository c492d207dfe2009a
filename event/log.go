package event

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// ErrNonMonotonicAppend is returned when an event is appended whose id is not
// strictly greater than the last appended id. This indicates either a reused
// factory or a hand-built event, both of which corrupt the history.
var ErrNonMonotonicAppend = eris.New("event id must be strictly greater than the last appended id")

// ErrEventNotFound is returned when a lookup references an id that is not in
// the log.
var ErrEventNotFound = eris.New("event not found")

// Filter selects events. Filters compose with plain boolean logic; the eql
// package compiles query strings into them.
type Filter func(*Event) bool

// Log is the authoritative, append-only history of the world. It maintains
// an incremental index from entity id to the events that reference the
// entity, so per-entity lookups never scan the full history.
type Log struct {
	events   []*Event
	byID     map[ID]int
	byEntity map[types.EntityID][]ID
}

func NewLog() *Log {
	return &Log{
		byID:     make(map[ID]int),
		byEntity: make(map[types.EntityID][]ID),
	}
}

// Append adds an event to the log, enforcing monotonic id order and updating
// the entity index for every participant (and the location, if set). If any
// of the event's causes are already in the log, the new event's id is
// back-filled into their Consequences so cascades can be traversed without a
// separate linking pass. Emitters that pre-link consequences are not
// duplicated.
func (l *Log) Append(ev *Event) error {
	if ev.ID <= l.LastID() {
		return eris.Wrapf(ErrNonMonotonicAppend, "id %d after %d", ev.ID, l.LastID())
	}
	l.byID[ev.ID] = len(l.events)
	l.events = append(l.events, ev)

	l.indexEntities(ev)

	for _, causeID := range ev.Causes {
		cause, ok := l.lookup(causeID)
		if !ok {
			continue
		}
		if !containsID(cause.Consequences, ev.ID) {
			cause.Consequences = append(cause.Consequences, ev.ID)
		}
	}
	return nil
}

// indexEntities records ev against every entity it references, once per
// entity even if the entity appears both as participant and location.
func (l *Log) indexEntities(ev *Event) {
	seen := make(map[types.EntityID]struct{}, len(ev.Participants)+1)
	for _, e := range ev.Participants {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		l.byEntity[e] = append(l.byEntity[e], ev.ID)
	}
	if ev.Location != 0 {
		if _, dup := seen[ev.Location]; !dup {
			l.byEntity[ev.Location] = append(l.byEntity[ev.Location], ev.ID)
		}
	}
}

func (l *Log) lookup(id ID) (*Event, bool) {
	i, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	return l.events[i], true
}

// ByID returns the event with the given id.
func (l *Log) ByID(id ID) (*Event, error) {
	ev, ok := l.lookup(id)
	if !ok {
		return nil, eris.Wrapf(ErrEventNotFound, "id %d", id)
	}
	return ev, nil
}

// All returns every event in append order.
func (l *Log) All() []*Event {
	out := make([]*Event, len(l.events))
	copy(out, l.events)
	return out
}

// ByEntity returns the events that reference the entity as a participant or
// location, in append order.
func (l *Log) ByEntity(e types.EntityID) []*Event {
	ids := l.byEntity[e]
	out := make([]*Event, 0, len(ids))
	for _, id := range ids {
		ev, _ := l.lookup(id)
		out = append(out, ev)
	}
	return out
}

// Filter returns the events matching f, in append order.
func (l *Log) Filter(f Filter) []*Event {
	var out []*Event
	for _, ev := range l.events {
		if f(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Since returns the events with ids strictly greater than id, in append
// order. The world calls this once per tick to collect the tick's events, so
// it binary-searches for the cut instead of scanning the full history. Append
// enforces strictly increasing ids, which is what makes the search valid.
func (l *Log) Since(id ID) []*Event {
	start := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].ID > id
	})
	if start == len(l.events) {
		return nil
	}
	out := make([]*Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out
}

func (l *Log) Len() int {
	return len(l.events)
}

// LastID returns the id of the most recently appended event, or 0 for an
// empty log.
func (l *Log) LastID() ID {
	if len(l.events) == 0 {
		return 0
	}
	return l.events[len(l.events)-1].ID
}

func containsID(ids []ID, id ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Package event implements the world's event infrastructure: the WorldEvent
// record, the factory that stamps ids and timestamps, the append-only log
// with its entity index, the synchronous publish/subscribe bus, and bounded
// cascade traversal over cause/consequence links.
package event

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// ID identifies one event. Ids are assigned by the Factory, start at 1, and
// are strictly increasing in append order.
type ID uint64

// Category is the coarse classification of an event. The set is closed;
// drafts with an unknown category are rejected by the factory.
type Category string

const (
	Politics    Category = "politics"
	Conflict    Category = "conflict"
	Magic       Category = "magic"
	Culture     Category = "culture"
	Economy     Category = "economy"
	Disaster    Category = "disaster"
	Exploration Category = "exploration"
	Religion    Category = "religion"
	Lifecycle   Category = "lifecycle"
	SystemEvent Category = "system"
)

// Categories returns every valid category.
func Categories() []Category {
	return []Category{
		Politics, Conflict, Magic, Culture, Economy,
		Disaster, Exploration, Religion, Lifecycle, SystemEvent,
	}
}

func (c Category) Valid() bool {
	switch c {
	case Politics, Conflict, Magic, Culture, Economy,
		Disaster, Exploration, Religion, Lifecycle, SystemEvent:
		return true
	}
	return false
}

const (
	MinSignificance = 0
	MaxSignificance = 100
)

// Event is an immutable record of something that happened in the world.
// Causes and Consequences are advisory links authored by emitters; the kernel
// does not guarantee the resulting graph is acyclic, so traversal must always
// be bounded (see Cascade).
type Event struct {
	ID           ID               `json:"id"`
	Category     Category         `json:"category"`
	Subtype      string           `json:"subtype"`
	Timestamp    uint64           `json:"timestamp"`
	Participants []types.EntityID `json:"participants"`
	Location     types.EntityID   `json:"location,omitempty"`
	Causes       []ID             `json:"causes"`
	Consequences []ID             `json:"consequences"`
	Significance int              `json:"significance"`
	Data         any              `json:"data"`
}

// ValidateSubtype checks that a subtype has the "domain.action" shape: two
// non-empty segments separated by a single dot.
func ValidateSubtype(subtype string) error {
	parts := strings.Split(subtype, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return eris.Errorf("subtype %q must have the form \"domain.action\"", subtype)
	}
	return nil
}

package event

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// Emitter is anything that can turn a draft into a recorded event. The world
// context implements it.
type Emitter interface {
	EmitEvent(Draft) (*Event, error)
}

// Type binds an event subtype to a payload struct, giving domain systems a
// typed emit/decode surface instead of hand-assembled drafts.
type Type[T any] struct {
	subtype  string
	category Category
}

// NewType creates a typed event descriptor. The subtype must have the
// "domain.action" shape and the category must be one of the closed set; both
// are programmer errors, so NewType panics rather than returning an error,
// which keeps descriptors declarable as package-level variables.
func NewType[T any](subtype string, category Category) *Type[T] {
	if err := ValidateSubtype(subtype); err != nil {
		panic(err)
	}
	if !category.Valid() {
		panic(eris.Errorf("unknown event category %q", category))
	}
	return &Type[T]{subtype: subtype, category: category}
}

func (t *Type[T]) Subtype() string {
	return t.subtype
}

func (t *Type[T]) Category() Category {
	return t.category
}

// Matches reports whether ev carries this type's subtype.
func (t *Type[T]) Matches(ev *Event) bool {
	return ev.Subtype == t.subtype
}

// EmitOption augments the draft built by Type.Emit.
type EmitOption func(*Draft)

func WithParticipants(participants ...types.EntityID) EmitOption {
	return func(d *Draft) { d.Participants = append(d.Participants, participants...) }
}

func WithLocation(location types.EntityID) EmitOption {
	return func(d *Draft) { d.Location = location }
}

func WithCauses(causes ...ID) EmitOption {
	return func(d *Draft) { d.Causes = append(d.Causes, causes...) }
}

func WithSignificance(significance int) EmitOption {
	return func(d *Draft) { d.Significance = significance }
}

// Emit builds a draft carrying data and hands it to the emitter.
func (t *Type[T]) Emit(em Emitter, data T, opts ...EmitOption) (*Event, error) {
	draft := Draft{
		Category: t.category,
		Subtype:  t.subtype,
		Data:     data,
	}
	for _, opt := range opts {
		opt(&draft)
	}
	return em.EmitEvent(draft)
}

// DecodeData recovers the typed payload from an event. It accepts both
// in-memory events (Data holds a T) and events rehydrated from JSON (Data
// holds a generic map).
func (t *Type[T]) DecodeData(ev *Event) (T, error) {
	var zero T
	if !t.Matches(ev) {
		return zero, eris.Errorf("event subtype %q does not match %q", ev.Subtype, t.subtype)
	}
	if data, ok := ev.Data.(T); ok {
		return data, nil
	}
	bz, err := codec.Encode(ev.Data)
	if err != nil {
		return zero, err
	}
	return codec.Decode[T](bz)
}

// TypeInfo describes a registered event type for logging and the /world
// endpoint.
type TypeInfo struct {
	Subtype    string         `json:"subtype"`
	Category   Category       `json:"category"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

// Types is a per-world registry of event types. Registration is optional for
// emitting, but registered types are listed by the inspection server and
// duplicate subtypes are rejected so two systems cannot silently claim the
// same subtype with different payloads.
type Types struct {
	bySubtype map[string]TypeInfo
	order     []string
}

func NewTypes() *Types {
	return &Types{bySubtype: make(map[string]TypeInfo)}
}

func (r *Types) register(info TypeInfo) error {
	if _, ok := r.bySubtype[info.Subtype]; ok {
		return eris.Errorf("event type %q is already registered", info.Subtype)
	}
	r.bySubtype[info.Subtype] = info
	r.order = append(r.order, info.Subtype)
	return nil
}

// All returns the registered event types in registration order.
func (r *Types) All() []TypeInfo {
	out := make([]TypeInfo, 0, len(r.order))
	for _, subtype := range r.order {
		out = append(out, r.bySubtype[subtype])
	}
	return out
}

// RegisterType records a typed event descriptor in the registry, capturing
// its payload's field layout via reflection.
func RegisterType[T any](registry *Types, t *Type[T]) error {
	var payload T
	return registry.register(TypeInfo{
		Subtype:    t.subtype,
		Category:   t.category,
		DataFields: types.GetFieldInformation(reflect.TypeOf(payload)),
	})
}

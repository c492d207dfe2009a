package event

import (
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Handler receives emitted events. Handlers run synchronously on the
// emitter's call stack.
type Handler func(*Event)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id      uint64
	matches Filter
	handler Handler
}

// Bus is the synchronous publish/subscribe dispatcher for world events.
// Emit appends the event to the log first, then invokes every matching
// subscriber in subscription order before returning.
//
// Dispatch is reentrant: a handler may itself call Emit, which nests another
// full dispatch inside the current one. The bus does not bound this
// recursion; emitters that chain events are responsible for terminating.
// Handlers subscribed during a dispatch see only later events, because
// dispatch walks a snapshot of the subscription list.
type Bus struct {
	log    *Log
	logger zerolog.Logger
	subs   []subscription
	nextID uint64
}

func NewBus(log *Log, logger zerolog.Logger) *Bus {
	return &Bus{log: log, logger: logger, nextID: 1}
}

// Subscribe registers a handler for every event.
func (b *Bus) Subscribe(h Handler) Unsubscribe {
	return b.subscribe(nil, h)
}

// SubscribeCategory registers a handler for events of one category.
func (b *Bus) SubscribeCategory(c Category, h Handler) Unsubscribe {
	return b.subscribe(func(ev *Event) bool { return ev.Category == c }, h)
}

// SubscribeSubtype registers a handler for events with an exact subtype.
func (b *Bus) SubscribeSubtype(subtype string, h Handler) Unsubscribe {
	return b.subscribe(func(ev *Event) bool { return ev.Subtype == subtype }, h)
}

func (b *Bus) subscribe(matches Filter, h Handler) Unsubscribe {
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, matches: matches, handler: h})
	return func() {
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool {
			return s.id == id
		})
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	return len(b.subs)
}

// Emit appends ev to the log and dispatches it to all matching subscribers.
// A panicking subscriber is logged and does not prevent the remaining
// subscribers from running. The append error (non-monotonic id) is returned
// before any subscriber runs.
func (b *Bus) Emit(ev *Event) error {
	if err := b.log.Append(ev); err != nil {
		return eris.Wrap(err, "failed to record event")
	}

	snapshot := slices.Clone(b.subs)
	for _, sub := range snapshot {
		if sub.matches != nil && !sub.matches(ev) {
			continue
		}
		b.dispatch(sub, ev)
	}
	return nil
}

func (b *Bus) dispatch(sub subscription, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Uint64("event_id", uint64(ev.ID)).
				Str("subtype", ev.Subtype).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()
	sub.handler(ev)
}

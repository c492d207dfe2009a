// Package archive mirrors a world's event history into Redis so it outlives
// the process. The archive is an EventBus consumer: it buffers the events of
// the tick in flight and flushes them in one pipeline when the world tells it
// the tick is complete. The kernel never reads the archive back during
// simulation; it exists for chroniclers and offline tooling.
package archive

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/codec"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/event"
	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

// Archive writes the event stream of one world run to Redis. Keys are
// prefixed with "namespace:runid:" so reruns of the same world never collide.
type Archive struct {
	client    *redis.Client
	keyPrefix string
	logger    zerolog.Logger

	pending     []*event.Event
	unsubscribe event.Unsubscribe
}

// Options for connecting the archive to Redis.
type Options struct {
	Address   string
	Password  string
	Namespace string
	RunID     string
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (*Archive, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, eris.Wrapf(err, "failed to connect to redis at %s", opts.Address)
	}
	return &Archive{
		client:    client,
		keyPrefix: opts.Namespace + ":" + opts.RunID,
		logger:    logger,
	}, nil
}

// Attach subscribes the archive to the bus. Every event emitted from now on
// is buffered until the next FlushTick.
func (a *Archive) Attach(bus *event.Bus) {
	a.unsubscribe = bus.Subscribe(func(ev *event.Event) {
		a.pending = append(a.pending, ev)
	})
}

func (a *Archive) eventsKey() string { return a.keyPrefix + ":events" }
func (a *Archive) logKey() string    { return a.keyPrefix + ":eventlog" }
func (a *Archive) tickKey() string   { return a.keyPrefix + ":latest-tick" }
func (a *Archive) entityKey(id types.EntityID) string {
	return a.keyPrefix + ":entity:" + strconv.FormatUint(uint64(id), 10)
}

// FlushTick writes the tick's buffered events to Redis in a single pipeline:
// the serialized event into a hash keyed by id, the id onto the ordered run
// log, the id onto the index list of every referenced entity, and the latest
// completed tick. A Redis failure is returned but leaves the in-memory world
// untouched; the caller decides whether a lossy archive is tolerable.
func (a *Archive) FlushTick(ctx context.Context, tick uint64) error {
	pending := a.pending
	a.pending = a.pending[:0]

	pipe := a.client.Pipeline()
	for _, ev := range pending {
		data, err := codec.Encode(ev)
		if err != nil {
			return eris.Wrapf(err, "failed to serialize event %d for the archive", ev.ID)
		}
		idField := strconv.FormatUint(uint64(ev.ID), 10)
		pipe.HSet(ctx, a.eventsKey(), idField, data)
		pipe.RPush(ctx, a.logKey(), idField)
		for _, entity := range referencedEntities(ev) {
			pipe.RPush(ctx, a.entityKey(entity), idField)
		}
	}
	pipe.Set(ctx, a.tickKey(), tick, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "failed to flush tick %d to the archive", tick)
	}
	return nil
}

// LatestTick reads back the last tick the archive flushed, or 0 when the run
// has no flushed ticks yet.
func (a *Archive) LatestTick(ctx context.Context) (uint64, error) {
	raw, err := a.client.Get(ctx, a.tickKey()).Result()
	if eris.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "failed to read the archived tick")
	}
	tick, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "corrupt archived tick %q", raw)
	}
	return tick, nil
}

// EventByID reads one archived event back.
func (a *Archive) EventByID(ctx context.Context, id event.ID) (*event.Event, error) {
	raw, err := a.client.HGet(ctx, a.eventsKey(), strconv.FormatUint(uint64(id), 10)).Result()
	if eris.Is(err, redis.Nil) {
		return nil, eris.Wrapf(event.ErrEventNotFound, "archived event %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read archived event %d", id)
	}
	ev, err := codec.Decode[event.Event]([]byte(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "corrupt archived event %d", id)
	}
	return &ev, nil
}

// EventIDs returns the archived run log, in emission order.
func (a *Archive) EventIDs(ctx context.Context) ([]event.ID, error) {
	raw, err := a.client.LRange(ctx, a.logKey(), 0, -1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read the archived event log")
	}
	ids := make([]event.ID, 0, len(raw))
	for _, field := range raw {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "corrupt archived event id %q", field)
		}
		ids = append(ids, event.ID(id))
	}
	return ids, nil
}

// EventIDsForEntity returns the archived per-entity index, in emission order.
func (a *Archive) EventIDsForEntity(ctx context.Context, entity types.EntityID) ([]event.ID, error) {
	raw, err := a.client.LRange(ctx, a.entityKey(entity), 0, -1).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read the archived index for entity %d", entity)
	}
	ids := make([]event.ID, 0, len(raw))
	for _, field := range raw {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "corrupt archived event id %q", field)
		}
		ids = append(ids, event.ID(id))
	}
	return ids, nil
}

// Close detaches from the bus and closes the Redis connection. Buffered but
// unflushed events are dropped.
func (a *Archive) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return eris.Wrap(a.client.Close(), "failed to close the archive connection")
}

// referencedEntities returns the entities an event should be indexed under,
// mirroring the in-memory log's participants-plus-location rule.
func referencedEntities(ev *event.Event) []types.EntityID {
	seen := make(map[types.EntityID]struct{}, len(ev.Participants)+1)
	out := make([]types.EntityID, 0, len(ev.Participants)+1)
	for _, e := range ev.Participants {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	if ev.Location != 0 {
		if _, dup := seen[ev.Location]; !dup {
			out = append(out, ev.Location)
		}
	}
	return out
}

package archive

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/component"
)

// redisSchemaStorage persists component schemas in a Redis hash keyed by the
// world namespace (not the run id: schemas must survive across runs so a
// restarted world with a changed component layout fails validation instead
// of silently corrupting archived state).
type redisSchemaStorage struct {
	client *redis.Client
	key    string
}

var _ component.SchemaStorage = (*redisSchemaStorage)(nil)

// NewRedisSchemaStorage returns a component.SchemaStorage backed by the
// archive's Redis connection.
func NewRedisSchemaStorage(a *Archive, namespace string) component.SchemaStorage {
	return &redisSchemaStorage{
		client: a.client,
		key:    namespace + ":component-schemas",
	}
}

func (r *redisSchemaStorage) Schema(name string) ([]byte, error) {
	raw, err := r.client.HGet(context.Background(), r.key, name).Result()
	if eris.Is(err, redis.Nil) {
		return nil, eris.Wrapf(component.ErrNoSchemaFound, "component %q", name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read the schema for component %q", name)
	}
	return []byte(raw), nil
}

func (r *redisSchemaStorage) SetSchema(name string, schema []byte) error {
	err := r.client.HSet(context.Background(), r.key, name, schema).Err()
	return eris.Wrapf(err, "failed to store the schema for component %q", name)
}

package component

import "github.com/rotisserie/eris"

// ErrNoSchemaFound is returned by a SchemaStorage when no schema has been
// stored for the requested component name.
var ErrNoSchemaFound = eris.New("no schema found")

// SchemaStorage persists component schemas so that a component definition can
// be validated against the schema it was previously registered with. The
// default implementation is in-memory; the archive package provides a
// Redis-backed one.
type SchemaStorage interface {
	Schema(name string) ([]byte, error)
	SetSchema(name string, schema []byte) error
}

type memorySchemaStorage struct {
	schemas map[string][]byte
}

// NewMemorySchemaStorage creates a SchemaStorage that lives and dies with the
// process.
func NewMemorySchemaStorage() SchemaStorage {
	return &memorySchemaStorage{schemas: make(map[string][]byte)}
}

func (m *memorySchemaStorage) Schema(name string) ([]byte, error) {
	schema, ok := m.schemas[name]
	if !ok {
		return nil, eris.Wrapf(ErrNoSchemaFound, "component %q", name)
	}
	return schema, nil
}

func (m *memorySchemaStorage) SetSchema(name string, schema []byte) error {
	m.schemas[name] = schema
	return nil
}

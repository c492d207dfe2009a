package component

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/NatureFlyWoW/fantasy-world-sim-sub001/types"
)

var ErrComponentNotRegistered = eris.New("component not registered")

// Manager tracks the component types registered with a world and hands out
// sequential component ids. Registration order is preserved so that anything
// that iterates the registered components does so deterministically.
type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	registrationOrder    []string
	nextComponentID      types.ComponentID
	schemaStorage        SchemaStorage
}

// NewManager creates a new component manager.
func NewManager(schemaStorage SchemaStorage) *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		nextComponentID:      1,
		schemaStorage:        schemaStorage,
	}
}

// RegisterComponent registers component with the component manager.
// There can only be one component with a given name, which is declared by the user by implementing the Name() method.
// If there is a duplicate component name, an error will be returned and the component will not be registered.
func (m *Manager) RegisterComponent(compMetadata types.ComponentMetadata) error {
	// Check that the component is not already registered
	if _, ok := m.registeredComponents[compMetadata.Name()]; ok {
		return eris.Errorf("component %q is already registered", compMetadata.Name())
	}

	// Try getting the schema from storage. A missing schema just means this
	// is the first registration; any other error terminates the registration.
	storedSchema, err := m.schemaStorage.Schema(compMetadata.Name())
	if err != nil && !eris.Is(err, ErrNoSchemaFound) {
		return err
	}

	if storedSchema != nil {
		// A schema is already stored for this name; the component definition
		// must still match it.
		if err := compMetadata.ValidateAgainstSchema(storedSchema); err != nil {
			if eris.Is(err, types.ErrComponentSchemaMismatch) {
				return eris.Wrap(err,
					fmt.Sprintf("component %q does not match the schema stored in storage", compMetadata.Name()),
				)
			}
			return eris.Wrap(err, "error when validating component schema against stored schema in storage")
		}
	} else {
		if err := m.schemaStorage.SetSchema(compMetadata.Name(), compMetadata.GetSchema()); err != nil {
			return err
		}
	}

	// Set the component ID and register the component. This happens after the
	// schema operations so a component is only registered if they succeeded.
	if err := compMetadata.SetID(m.nextComponentID); err != nil {
		return err
	}
	m.registeredComponents[compMetadata.Name()] = compMetadata
	m.registrationOrder = append(m.registrationOrder, compMetadata.Name())
	m.nextComponentID++

	return nil
}

// GetComponents returns all registered components in registration order.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	registeredComponents := make([]types.ComponentMetadata, 0, len(m.registrationOrder))
	for _, name := range m.registrationOrder {
		registeredComponents = append(registeredComponents, m.registeredComponents[name])
	}
	return registeredComponents
}

// GetComponentByName returns the component metadata for the given component name.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	c, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component %q is not registered", name))
	}
	return c, nil
}

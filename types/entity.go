package types

// EntityID is an opaque identifier for an entity. IDs are allocated densely
// and monotonically by the state store and are never reused within a process
// run. The zero value is reserved to mean "no entity" (for example an event
// with no location).
type EntityID uint64

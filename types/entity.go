// Package types provides the shared value types of the licensing engine:
// holder addresses, checked unsigned arithmetic and entity timestamps.
package types

import "time"

// Entity carries creation and modification timestamps.
// Embed it in persisted records.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity stamped with the current UTC time.
func NewEntity() Entity {
	return NewEntityAt(time.Now().UTC())
}

// NewEntityAt returns an Entity stamped with t.
func NewEntityAt(t time.Time) Entity {
	return Entity{CreatedAt: t, UpdatedAt: t}
}

// Touch updates UpdatedAt to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t
}

package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything tracked by identity rather than by value
type Entity interface {
	GetID() uuid.UUID
}

// BaseEntity carries an identity and the time of the last change
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// Touch records a change made now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// ModifiedSince reports whether the entity changed after t
func (e *BaseEntity) ModifiedSince(t time.Time) bool {
	return e.UpdatedAt.After(t)
}

// NewBaseEntity returns an entity with a random ID, created now
func NewBaseEntity() BaseEntity {
	return NewBaseEntityWithID(uuid.New())
}

// NewBaseEntityWithID returns an entity with a known ID, for orders loaded from elsewhere
func NewBaseEntityWithID(id uuid.UUID) BaseEntity {
	now := time.Now()
	return BaseEntity{ID: id, CreatedAt: now, UpdatedAt: now}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audited actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// Audited entity types
const (
	EntityPrice = "price"
)

// AuditEntry records who changed what and when
type AuditEntry struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ActorID    uuid.UUID `json:"actor_id" db:"actor_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id" db:"entity_id"`
	Details    string    `json:"details" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

package repository

import (
	"context"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
)

// AuditLogRepository records who changed which entity
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*domain.AuditEntry, error)
}

type auditLogRepository struct {
	db DBTX
}

// NewAuditLogRepository creates a new instance of AuditLogRepository
func NewAuditLogRepository(db DBTX) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return domain.NewStorageError("create audit entry", err)
	}

	return nil
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, entity_type, entity_id, details, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, domain.NewStorageError("list audit entries", err)
	}
	defer rows.Close()

	entries := []*domain.AuditEntry{}
	for rows.Next() {
		entry := &domain.AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Details,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, domain.NewStorageError("scan audit entry", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate audit entries", err)
	}

	return entries, nil
}

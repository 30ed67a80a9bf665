package repository

import (
	"context"
	"database/sql"
	"errors"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrStoreNotFound = domain.NewKindError("store not found", domain.ErrNotFound)
	ErrStoreInUse    = domain.NewKindError("store is still referenced by prices or price history", domain.ErrConflict)
)

// StoreRepository defines the interface for store data access
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) error
	List(ctx context.Context) ([]*domain.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Store, error)
	Update(ctx context.Context, store *domain.Store) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type storeRepository struct {
	db DBTX
}

// NewStoreRepository creates a new instance of StoreRepository
func NewStoreRepository(db DBTX) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) Create(ctx context.Context, store *domain.Store) error {
	query := `
		INSERT INTO stores (id, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		store.ID,
		store.Name,
		store.Address,
		store.CreatedAt,
		store.UpdatedAt,
	)
	if err != nil {
		return domain.NewStorageError("create store", err)
	}

	return nil
}

func (r *storeRepository) List(ctx context.Context) ([]*domain.Store, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM stores
		ORDER BY name ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.NewStorageError("list stores", err)
	}
	defer rows.Close()

	stores := []*domain.Store{}
	for rows.Next() {
		store := &domain.Store{}
		if err := rows.Scan(&store.ID, &store.Name, &store.Address, &store.CreatedAt, &store.UpdatedAt); err != nil {
			return nil, domain.NewStorageError("scan store", err)
		}
		stores = append(stores, store)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate stores", err)
	}

	return stores, nil
}

func (r *storeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	store := &domain.Store{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&store.ID,
		&store.Name,
		&store.Address,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.NewStorageError("find store by ID", err)
	}

	return store, nil
}

func (r *storeRepository) Update(ctx context.Context, store *domain.Store) error {
	query := `
		UPDATE stores
		SET name = $2, address = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, store.ID, store.Name, store.Address, store.UpdatedAt)
	if err != nil {
		return domain.NewStorageError("update store", err)
	}

	return checkRowsAffected(result, "update store", ErrStoreNotFound)
}

func (r *storeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) != "" {
			return ErrStoreInUse
		}
		return domain.NewStorageError("delete store", err)
	}

	return checkRowsAffected(result, "delete store", ErrStoreNotFound)
}

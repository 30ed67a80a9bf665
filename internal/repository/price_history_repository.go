package repository

import (
	"context"
	"time"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
)

// PriceHistoryRepository is the append-only ledger of price values
type PriceHistoryRepository interface {
	Create(ctx context.Context, snapshot *domain.PriceHistory) error
	// FindByProductAndStoreInRange returns snapshots with from <= recorded_at < to, oldest first.
	FindByProductAndStoreInRange(ctx context.Context, productID, storeID uuid.UUID, from, to time.Time) ([]*domain.PriceHistory, error)
	ListByProductAndStore(ctx context.Context, productID, storeID uuid.UUID) ([]*domain.PriceHistory, error)
}

type priceHistoryRepository struct {
	db DBTX
}

// NewPriceHistoryRepository creates a new instance of PriceHistoryRepository
func NewPriceHistoryRepository(db DBTX) PriceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

func (r *priceHistoryRepository) Create(ctx context.Context, snapshot *domain.PriceHistory) error {
	query := `
		INSERT INTO price_history (id, product_id, store_id, amount, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.ProductID,
		snapshot.StoreID,
		snapshot.Amount,
		snapshot.RecordedAt,
	)
	if err != nil {
		if vErr := missingReference(err); vErr != nil {
			return vErr
		}
		return domain.NewStorageError("create price snapshot", err)
	}

	return nil
}

func (r *priceHistoryRepository) FindByProductAndStoreInRange(ctx context.Context, productID, storeID uuid.UUID, from, to time.Time) ([]*domain.PriceHistory, error) {
	query := `
		SELECT id, product_id, store_id, amount, recorded_at
		FROM price_history
		WHERE product_id = $1 AND store_id = $2
		  AND recorded_at >= $3 AND recorded_at < $4
		ORDER BY recorded_at ASC, id ASC
	`

	history, err := r.query(ctx, query, productID, storeID, from, to)
	if err != nil {
		return nil, domain.NewStorageError("find price history in range", err)
	}
	return history, nil
}

func (r *priceHistoryRepository) ListByProductAndStore(ctx context.Context, productID, storeID uuid.UUID) ([]*domain.PriceHistory, error) {
	query := `
		SELECT id, product_id, store_id, amount, recorded_at
		FROM price_history
		WHERE product_id = $1 AND store_id = $2
		ORDER BY recorded_at ASC, id ASC
	`

	history, err := r.query(ctx, query, productID, storeID)
	if err != nil {
		return nil, domain.NewStorageError("list price history", err)
	}
	return history, nil
}

func (r *priceHistoryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.PriceHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []*domain.PriceHistory{}
	for rows.Next() {
		snapshot := &domain.PriceHistory{}
		err := rows.Scan(
			&snapshot.ID,
			&snapshot.ProductID,
			&snapshot.StoreID,
			&snapshot.Amount,
			&snapshot.RecordedAt,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, snapshot)
	}

	return history, rows.Err()
}

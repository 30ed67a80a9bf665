package repository

import (
	"context"
	"database/sql"
	"errors"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
)

var ErrPriceNotFound = domain.NewKindError("price not found", domain.ErrNotFound)

const priceColumns = `p.id, p.product_id, p.store_id, p.amount, p.recorded_at, p.updated_at, p.version`

const resolvedPriceQuery = `
	SELECT ` + priceColumns + `,
	       pr.id, pr.name, pr.description, pr.category_id, pr.created_at, pr.updated_at,
	       s.id, s.name, s.address, s.created_at, s.updated_at
	FROM prices p
	JOIN products pr ON pr.id = p.product_id
	JOIN stores s ON s.id = p.store_id
`

// PriceRepository defines the interface for current price data access
type PriceRepository interface {
	Create(ctx context.Context, price *domain.Price) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Price, error)
	// FindByIDForUpdate reads a price and locks its row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Price, error)
	// Update writes product, store and amount, bumps the version and leaves recorded_at untouched.
	Update(ctx context.Context, price *domain.Price) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindAllWithProductAndStore(ctx context.Context) ([]*domain.Price, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.Price, error)
}

type priceRepository struct {
	db DBTX
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db DBTX) PriceRepository {
	return &priceRepository{db: db}
}

// missingReference translates a foreign key violation on prices into a validation error
func missingReference(err error) error {
	switch foreignKeyViolation(err) {
	case "fk_prices_product", "fk_price_history_product":
		return domain.NewValidationError("product_id", "references a missing product")
	case "fk_prices_store", "fk_price_history_store":
		return domain.NewValidationError("store_id", "references a missing store")
	}
	return nil
}

func (r *priceRepository) Create(ctx context.Context, price *domain.Price) error {
	query := `
		INSERT INTO prices (id, product_id, store_id, amount, recorded_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if price.Version == 0 {
		price.Version = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		price.ID,
		price.ProductID,
		price.StoreID,
		price.Amount,
		price.RecordedAt,
		price.UpdatedAt,
		price.Version,
	)
	if err != nil {
		if vErr := missingReference(err); vErr != nil {
			return vErr
		}
		return domain.NewStorageError("create price", err)
	}

	return nil
}

func (r *priceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	return r.findOne(ctx, "find price by ID", `SELECT `+priceColumns+` FROM prices p WHERE p.id = $1`, id)
}

func (r *priceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	return r.findOne(ctx, "lock price", `SELECT `+priceColumns+` FROM prices p WHERE p.id = $1 FOR UPDATE`, id)
}

func (r *priceRepository) findOne(ctx context.Context, op, query string, id uuid.UUID) (*domain.Price, error) {
	price, err := scanPrice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPriceNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return price, nil
}

func (r *priceRepository) Update(ctx context.Context, price *domain.Price) error {
	query := `
		UPDATE prices
		SET product_id = $2, store_id = $3, amount = $4, updated_at = $5, version = version + 1
		WHERE id = $1
		RETURNING recorded_at, version
	`

	err := r.db.QueryRowContext(ctx, query,
		price.ID,
		price.ProductID,
		price.StoreID,
		price.Amount,
		price.UpdatedAt,
	).Scan(&price.RecordedAt, &price.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPriceNotFound
		}
		if vErr := missingReference(err); vErr != nil {
			return vErr
		}
		return domain.NewStorageError("update price", err)
	}

	return nil
}

func (r *priceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prices WHERE id = $1`, id)
	if err != nil {
		return domain.NewStorageError("delete price", err)
	}

	return checkRowsAffected(result, "delete price", ErrPriceNotFound)
}

func (r *priceRepository) FindAllWithProductAndStore(ctx context.Context) ([]*domain.Price, error) {
	query := resolvedPriceQuery + ` ORDER BY p.recorded_at ASC, p.id ASC`

	prices, err := r.queryResolved(ctx, query)
	if err != nil {
		return nil, domain.NewStorageError("list prices", err)
	}
	return prices, nil
}

func (r *priceRepository) FindByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.Price, error) {
	query := resolvedPriceQuery + ` WHERE p.product_id = $1 ORDER BY p.amount ASC, s.name ASC, p.id ASC`

	prices, err := r.queryResolved(ctx, query, productID)
	if err != nil {
		return nil, domain.NewStorageError("list prices of product", err)
	}
	return prices, nil
}

func (r *priceRepository) queryResolved(ctx context.Context, query string, args ...any) ([]*domain.Price, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := []*domain.Price{}
	for rows.Next() {
		price := &domain.Price{Product: &domain.Product{}, Store: &domain.Store{}}
		err := rows.Scan(
			&price.ID,
			&price.ProductID,
			&price.StoreID,
			&price.Amount,
			&price.RecordedAt,
			&price.UpdatedAt,
			&price.Version,
			&price.Product.ID,
			&price.Product.Name,
			&price.Product.Description,
			&price.Product.CategoryID,
			&price.Product.CreatedAt,
			&price.Product.UpdatedAt,
			&price.Store.ID,
			&price.Store.Name,
			&price.Store.Address,
			&price.Store.CreatedAt,
			&price.Store.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}

	return prices, rows.Err()
}

func scanPrice(row rowScanner) (*domain.Price, error) {
	price := &domain.Price{}
	err := row.Scan(
		&price.ID,
		&price.ProductID,
		&price.StoreID,
		&price.Amount,
		&price.RecordedAt,
		&price.UpdatedAt,
		&price.Version,
	)
	if err != nil {
		return nil, err
	}
	return price, nil
}

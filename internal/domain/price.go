package domain

import (
	"time"

	"github.com/google/uuid"
)

// Price is the current amount of a product at a store.
//
// Amount is expressed in the smallest currency unit. RecordedAt is set when the
// price is created and is never changed by updates.
type Price struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	StoreID    uuid.UUID `json:"store_id" db:"store_id"`
	Amount     int64     `json:"amount" db:"amount"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	Version    int64     `json:"version" db:"version"`

	// Resolved references, populated by queries that join them.
	Product *Product `json:"product,omitempty"`
	Store   *Store   `json:"store,omitempty"`
}

// PriceHistory is an immutable snapshot of a value a price once held.
type PriceHistory struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	StoreID    uuid.UUID `json:"store_id" db:"store_id"`
	Amount     int64     `json:"amount" db:"amount"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// SnapshotOf builds the history row capturing p's product, store and amount at the given instant.
func SnapshotOf(p *Price, at time.Time) *PriceHistory {
	return &PriceHistory{
		ID:         uuid.New(),
		ProductID:  p.ProductID,
		StoreID:    p.StoreID,
		Amount:     p.Amount,
		RecordedAt: at,
	}
}

// PriceRecord is the flattened wire shape used by bulk export and import.
type PriceRecord struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	ProductID  *uuid.UUID `json:"product_id"`
	StoreID    *uuid.UUID `json:"store_id"`
	Amount     int64      `json:"amount"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// RecordOf flattens a price into its export record
func RecordOf(p *Price) PriceRecord {
	id, productID, storeID := p.ID, p.ProductID, p.StoreID
	return PriceRecord{
		ID:         &id,
		ProductID:  &productID,
		StoreID:    &storeID,
		Amount:     p.Amount,
		RecordedAt: p.RecordedAt,
	}
}

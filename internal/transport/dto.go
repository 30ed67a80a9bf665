package transport

import (
	"price-catalog/internal/domain"
	"price-catalog/internal/service"

	"github.com/google/uuid"
)

// CategoryRequest is the payload for creating or updating a category
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// ProductRequest is the payload for creating or updating a product
type ProductRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description" validate:"max=2000"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

// categoryID rejects a product payload that does not reference a category
func (p ProductRequest) categoryID() (uuid.UUID, error) {
	if p.CategoryID == nil || *p.CategoryID == uuid.Nil {
		return uuid.Nil, domain.NewValidationError("category_id", "is required")
	}
	return *p.CategoryID, nil
}

// StoreRequest is the payload for creating or updating a store
type StoreRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"max=500"`
}

// PriceRequest is the payload for creating or updating a price.
// Version is optional; when set it must match the stored version.
type PriceRequest struct {
	ProductID *uuid.UUID `json:"product_id"`
	StoreID   *uuid.UUID `json:"store_id"`
	Amount    *int64     `json:"amount" validate:"required,gte=0"`
	Version   int64      `json:"version" validate:"gte=0"`
}

// toInput converts the payload, rejecting missing product or store references
func (p PriceRequest) toInput() (service.PriceInput, error) {
	if p.ProductID == nil || *p.ProductID == uuid.Nil {
		return service.PriceInput{}, domain.NewValidationError("product_id", "is required")
	}
	if p.StoreID == nil || *p.StoreID == uuid.Nil {
		return service.PriceInput{}, domain.NewValidationError("store_id", "is required")
	}
	if p.Amount == nil {
		return service.PriceInput{}, domain.NewValidationError("amount", "is required")
	}
	return service.PriceInput{
		ProductID: *p.ProductID,
		StoreID:   *p.StoreID,
		Amount:    *p.Amount,
		Version:   p.Version,
	}, nil
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Items    []*domain.Product `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// PriceResponse is a current price with its references resolved when known
type PriceResponse struct {
	ID         uuid.UUID       `json:"id"`
	Amount     int64           `json:"amount"`
	RecordedAt string          `json:"recorded_at"`
	UpdatedAt  string          `json:"updated_at"`
	Version    int64           `json:"version"`
	ProductID  uuid.UUID       `json:"product_id"`
	StoreID    uuid.UUID       `json:"store_id"`
	Product    *domain.Product `json:"product,omitempty"`
	Store      *domain.Store   `json:"store,omitempty"`
}

const timestampLayout = "2006-01-02T15:04:05.999999Z07:00"

func toPriceResponse(p *domain.Price) PriceResponse {
	return PriceResponse{
		ID:         p.ID,
		Amount:     p.Amount,
		RecordedAt: p.RecordedAt.UTC().Format(timestampLayout),
		UpdatedAt:  p.UpdatedAt.UTC().Format(timestampLayout),
		Version:    p.Version,
		ProductID:  p.ProductID,
		StoreID:    p.StoreID,
		Product:    p.Product,
		Store:      p.Store,
	}
}

func toPriceResponses(prices []*domain.Price) []PriceResponse {
	out := make([]PriceResponse, len(prices))
	for i, p := range prices {
		out[i] = toPriceResponse(p)
	}
	return out
}

// HistoryResponse is a windowed price history
type HistoryResponse struct {
	ProductID uuid.UUID              `json:"product_id"`
	StoreID   uuid.UUID              `json:"store_id"`
	StartDate string                 `json:"start_date,omitempty"`
	EndDate   string                 `json:"end_date,omitempty"`
	Entries   []*domain.PriceHistory `json:"entries"`
}

// ImportResponse reports the prices written by a bulk import
type ImportResponse struct {
	Count   int                  `json:"count"`
	Records []domain.PriceRecord `json:"records"`
}

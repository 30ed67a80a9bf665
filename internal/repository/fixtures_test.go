package repository

import (
	"context"
	"testing"
	"time"

	"price-catalog/internal/domain"

	"github.com/google/uuid"
)

func seedCategory(t *testing.T) *domain.Category {
	t.Helper()
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        "Test Category " + uuid.NewString(),
		Description: "Test category description",
		CreatedAt:   time.Now(),
	}
	if err := NewCategoryRepository(testDB).Create(context.Background(), category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

func seedProduct(t *testing.T) *domain.Product {
	t.Helper()
	category := seedCategory(t)
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Test Product " + uuid.NewString()[:8],
		Description: "Test product description",
		CategoryID:  category.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return product
}

func seedStore(t *testing.T) *domain.Store {
	t.Helper()
	store := &domain.Store{
		ID:        uuid.New(),
		Name:      "Test Store " + uuid.NewString()[:8],
		Address:   "1 Market Street",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := NewStoreRepository(testDB).Create(context.Background(), store); err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func seedPrice(t *testing.T, product *domain.Product, store *domain.Store, amount int64, at time.Time) *domain.Price {
	t.Helper()
	price := &domain.Price{
		ID:         uuid.New(),
		ProductID:  product.ID,
		StoreID:    store.ID,
		Amount:     amount,
		RecordedAt: at,
		UpdatedAt:  at,
	}
	if err := NewPriceRepository(testDB).Create(context.Background(), price); err != nil {
		t.Fatalf("Failed to create price: %v", err)
	}
	return price
}

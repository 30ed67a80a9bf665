package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"price-catalog/internal/clock"
	"price-catalog/internal/domain"
	"price-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductFilter selects a page of products
type ProductFilter struct {
	CategoryID *uuid.UUID
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  repository.SortOrder
}

func (f *ProductFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// CatalogService manages the reference data prices point at
type CatalogService interface {
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, name, description string, categoryID uuid.UUID) (*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, categoryID uuid.UUID) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateStore(ctx context.Context, name, address string) (*domain.Store, error)
	GetStore(ctx context.Context, id uuid.UUID) (*domain.Store, error)
	ListStores(ctx context.Context) ([]*domain.Store, error)
	UpdateStore(ctx context.Context, id uuid.UUID, name, address string) (*domain.Store, error)
	DeleteStore(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	stores     repository.StoreRepository
	clock      clock.Clock
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	stores repository.StoreRepository,
	clk clock.Clock,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categories: categories,
		products:   products,
		stores:     stores,
		clock:      clk,
		logger:     logger,
	}
}

func requireName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.NewValidationError(field, "is required")
	}
	return value, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = description

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *catalogService) requireCategory(ctx context.Context, categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return domain.NewValidationError("category_id", "is required")
	}
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("category_id", "references a missing category")
		}
		return err
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, name, description string, categoryID uuid.UUID) (*domain.Product, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CategoryID:  categoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	filter.normalize()
	return s.products.List(ctx, filter.CategoryID, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	filter := ProductFilter{Page: page, PageSize: pageSize}
	filter.normalize()
	return s.products.Search(ctx, query, filter.Page, filter.PageSize)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, categoryID uuid.UUID) (*domain.Product, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	product.Name = name
	product.Description = description
	product.CategoryID = categoryID
	product.UpdatedAt = s.clock.Now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *catalogService) CreateStore(ctx context.Context, name, address string) (*domain.Store, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	store := &domain.Store{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	s.logger.Info("Store created", zap.String("store_id", store.ID.String()))
	return store, nil
}

func (s *catalogService) GetStore(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	return s.stores.FindByID(ctx, id)
}

func (s *catalogService) ListStores(ctx context.Context) ([]*domain.Store, error) {
	return s.stores.List(ctx)
}

func (s *catalogService) UpdateStore(ctx context.Context, id uuid.UUID, name, address string) (*domain.Store, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	store.Name = name
	store.Address = address
	store.UpdatedAt = s.clock.Now()

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to update store: %w", err)
	}
	return store, nil
}

func (s *catalogService) DeleteStore(ctx context.Context, id uuid.UUID) error {
	if err := s.stores.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	s.logger.Info("Store deleted", zap.String("store_id", id.String()))
	return nil
}

package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"price-catalog/internal/domain"
	"price-catalog/internal/middleware"
	"price-catalog/internal/repository"
	"price-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCatalogService struct {
	categories map[uuid.UUID]*domain.Category
	products   map[uuid.UUID]*domain.Product
	stores     map[uuid.UUID]*domain.Store
	lastFilter service.ProductFilter
	lastQuery  string
}

func newStubCatalogService() *stubCatalogService {
	return &stubCatalogService{
		categories: map[uuid.UUID]*domain.Category{},
		products:   map[uuid.UUID]*domain.Product{},
		stores:     map[uuid.UUID]*domain.Store{},
	}
}

var errStubNotFound = domain.NewKindError("not found", domain.ErrNotFound)

func (s *stubCatalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	c := &domain.Category{ID: uuid.New(), Name: name, Description: description}
	s.categories[c.ID] = c
	return c, nil
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if c, ok := s.categories[id]; ok {
		return c, nil
	}
	return nil, errStubNotFound
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Description = name, description
	return c, nil
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	for _, p := range s.products {
		if p.CategoryID == id {
			return repository.ErrCategoryInUse
		}
	}
	if _, ok := s.categories[id]; !ok {
		return errStubNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, name, description string, categoryID uuid.UUID) (*domain.Product, error) {
	if _, ok := s.categories[categoryID]; !ok {
		return nil, domain.NewValidationError("category_id", "references a missing category")
	}
	p := &domain.Product{ID: uuid.New(), Name: name, Description: description, CategoryID: categoryID}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, errStubNotFound
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter service.ProductFilter) ([]*domain.Product, int, error) {
	s.lastFilter = filter
	out := []*domain.Product{}
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *stubCatalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	s.lastQuery = query
	return []*domain.Product{}, 0, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, name, description string, categoryID uuid.UUID) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.Description, p.CategoryID = name, description, categoryID
	return p, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.products[id]; !ok {
		return errStubNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubCatalogService) CreateStore(ctx context.Context, name, address string) (*domain.Store, error) {
	st := &domain.Store{ID: uuid.New(), Name: name, Address: address}
	s.stores[st.ID] = st
	return st, nil
}

func (s *stubCatalogService) GetStore(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	if st, ok := s.stores[id]; ok {
		return st, nil
	}
	return nil, errStubNotFound
}

func (s *stubCatalogService) ListStores(ctx context.Context) ([]*domain.Store, error) {
	out := []*domain.Store{}
	for _, st := range s.stores {
		out = append(out, st)
	}
	return out, nil
}

func (s *stubCatalogService) UpdateStore(ctx context.Context, id uuid.UUID, name, address string) (*domain.Store, error) {
	st, err := s.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Name, st.Address = name, address
	return st, nil
}

func (s *stubCatalogService) DeleteStore(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.stores[id]; !ok {
		return errStubNotFound
	}
	delete(s.stores, id)
	return nil
}

func newCatalogRouter(svc service.CatalogService) http.Handler {
	r := chi.NewRouter()
	NewCatalogHandler(svc, zap.NewNop()).RegisterRoutes(r, testAuth, middleware.RequireAdmin(zap.NewNop()))
	return r
}

func TestCategoryEndpoints(t *testing.T) {
	svc := newStubCatalogService()
	router := newCatalogRouter(svc)

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPost, "/api/categories", domain.RoleUser, []byte(`{"name":"Dairy"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/categories", domain.RoleAdmin, []byte(`{"description":"no name"}`)).Code)

	w := do(router, http.MethodPost, "/api/categories", domain.RoleAdmin, []byte(`{"name":"Dairy"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var category domain.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))

	w = do(router, http.MethodPut, "/api/categories/"+category.ID.String(), domain.RoleAdmin, []byte(`{"name":"Dairy & Eggs"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dairy & Eggs", svc.categories[category.ID].Name)

	w = do(router, http.MethodPost, "/api/products", domain.RoleAdmin, []byte(`{"name":"Milk","category_id":"`+category.ID.String()+`"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusConflict, do(router, http.MethodDelete, "/api/categories/"+category.ID.String(), domain.RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/categories/"+uuid.NewString(), domain.RoleUser, nil).Code)
}

func TestCreateProductRequiresCategory(t *testing.T) {
	svc := newStubCatalogService()
	router := newCatalogRouter(svc)

	w := do(router, http.MethodPost, "/api/products", domain.RoleAdmin, []byte(`{"name":"Milk"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"category_id"}, validationFields(t, w))

	w = do(router, http.MethodPost, "/api/products", domain.RoleAdmin, []byte(`{"name":"Milk","category_id":"`+uuid.NewString()+`"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.products)
}

func TestListProductsQueryParameters(t *testing.T) {
	svc := newStubCatalogService()
	router := newCatalogRouter(svc)
	categoryID := uuid.New()

	w := do(router, http.MethodGet, "/api/products?category_id="+categoryID.String()+"&page=2&page_size=500&sort_by=name&sort_order=desc", domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilter.CategoryID)
	assert.Equal(t, categoryID, *svc.lastFilter.CategoryID)
	assert.Equal(t, repository.SortOrderDesc, svc.lastFilter.SortOrder)

	var page ProductPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, service.MaxPageSize, page.PageSize)

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/products?page=two", domain.RoleUser, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/products?sort_order=sideways", domain.RoleUser, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/products/search", domain.RoleUser, nil).Code)

	require.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/products/search?q=milk", domain.RoleUser, nil).Code)
	assert.Equal(t, "milk", svc.lastQuery)
}

func TestStoreEndpoints(t *testing.T) {
	svc := newStubCatalogService()
	router := newCatalogRouter(svc)

	w := do(router, http.MethodPost, "/api/stores", domain.RoleAdmin, []byte(`{"name":"Corner Shop","address":"Main Street 1"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var store domain.Store
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &store))

	w = do(router, http.MethodGet, "/api/stores", domain.RoleUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stores []domain.Store
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stores))
	assert.Len(t, stores, 1)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/api/stores/"+store.ID.String(), domain.RoleAdmin, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/api/stores/"+store.ID.String(), domain.RoleAdmin, nil).Code)
}

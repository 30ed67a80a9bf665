package transport

import (
	"net/http"
	"strings"

	"price-catalog/internal/domain"
	"price-catalog/internal/middleware"
	"price-catalog/internal/repository"
	"price-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogHandler serves categories, products and stores
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers catalog routes. Reads need authentication, writes need the admin role.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware Middleware) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.CreateCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/{id}", h.GetProduct)
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/stores", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListStores)
		r.Get("/{id}", h.GetStore)
		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.CreateStore)
			r.Put("/{id}", h.UpdateStore)
			r.Delete("/{id}", h.DeleteStore)
		})
	})
}

func (h *CatalogHandler) fail(w http.ResponseWriter, err error) {
	middleware.RespondWithDomainError(w, err, h.logger)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts supports category_id, page, page_size, sort_by and sort_order query parameters
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilterFrom(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	products, total, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	page, pageSize := pageBounds(filter.Page, filter.PageSize)
	middleware.RespondWithJSON(w, http.StatusOK, ProductPage{Items: products, Total: total, Page: page, PageSize: pageSize})
}

func productFilterFrom(r *http.Request) (service.ProductFilter, error) {
	var filter service.ProductFilter
	q := r.URL.Query()

	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.NewValidationError("category_id", "must be a UUID")
		}
		filter.CategoryID = &id
	}

	var err error
	if filter.Page, err = queryInt(r, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = queryInt(r, "page_size"); err != nil {
		return filter, err
	}

	filter.SortBy = q.Get("sort_by")
	switch strings.ToLower(q.Get("sort_order")) {
	case "", "asc":
		filter.SortOrder = repository.SortOrderAsc
	case "desc":
		filter.SortOrder = repository.SortOrderDesc
	default:
		return filter, domain.NewValidationError("sort_order", "must be asc or desc")
	}
	return filter, nil
}

// pageBounds mirrors the normalization the catalog service applies
func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = service.DefaultPageSize
	}
	if pageSize > service.MaxPageSize {
		pageSize = service.MaxPageSize
	}
	return page, pageSize
}

func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.fail(w, domain.NewValidationError("q", "is required"))
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		h.fail(w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		h.fail(w, err)
		return
	}

	products, total, err := h.catalog.SearchProducts(r.Context(), query, page, pageSize)
	if err != nil {
		h.fail(w, err)
		return
	}
	page, pageSize = pageBounds(page, pageSize)
	middleware.RespondWithJSON(w, http.StatusOK, ProductPage{Items: products, Total: total, Page: page, PageSize: pageSize})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	categoryID, err := req.categoryID()
	if err != nil {
		h.fail(w, err)
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), req.Name, req.Description, categoryID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req ProductRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	categoryID, err := req.categoryID()
	if err != nil {
		h.fail(w, err)
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), id, req.Name, req.Description, categoryID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.catalog.ListStores(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stores)
}

func (h *CatalogHandler) GetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	store, err := h.catalog.GetStore(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, store)
}

func (h *CatalogHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	store, err := h.catalog.CreateStore(r.Context(), req.Name, req.Address)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, store)
}

func (h *CatalogHandler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req StoreRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	store, err := h.catalog.UpdateStore(r.Context(), id, req.Name, req.Address)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, store)
}

func (h *CatalogHandler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.catalog.DeleteStore(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

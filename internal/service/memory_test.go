package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"price-catalog/internal/domain"
	"price-catalog/internal/repository"

	"github.com/google/uuid"
)

// memoryStore backs the in-memory repositories. WithinTx snapshots it and
// restores the snapshot when the unit of work fails.
type memoryStore struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	stores     map[uuid.UUID]domain.Store
	prices     map[uuid.UUID]domain.Price
	history    []domain.PriceHistory
	audit      []domain.AuditEntry

	// failHistory, when set, is returned by every snapshot insert.
	failHistory error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		categories: map[uuid.UUID]domain.Category{},
		products:   map[uuid.UUID]domain.Product{},
		stores:     map[uuid.UUID]domain.Store{},
		prices:     map[uuid.UUID]domain.Price{},
	}
}

type memoryState struct {
	prices  map[uuid.UUID]domain.Price
	history []domain.PriceHistory
	audit   []domain.AuditEntry
}

func (m *memoryStore) save() memoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	prices := make(map[uuid.UUID]domain.Price, len(m.prices))
	for k, v := range m.prices {
		prices[k] = v
	}
	return memoryState{
		prices:  prices,
		history: append([]domain.PriceHistory(nil), m.history...),
		audit:   append([]domain.AuditEntry(nil), m.audit...),
	}
}

func (m *memoryStore) restore(s memoryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = s.prices
	m.history = s.history
	m.audit = s.audit
}

func (m *memoryStore) historyFor(productID, storeID uuid.UUID) []domain.PriceHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PriceHistory
	for _, h := range m.history {
		if h.ProductID == productID && h.StoreID == storeID {
			out = append(out, h)
		}
	}
	return out
}

func (m *memoryStore) addProduct() domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Product{ID: uuid.New(), Name: "Product " + uuid.NewString()[:6], CategoryID: uuid.New()}
	m.products[p.ID] = p
	return p
}

func (m *memoryStore) addStore() domain.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Store{ID: uuid.New(), Name: "Store " + uuid.NewString()[:6]}
	m.stores[s.ID] = s
	return s
}

func (m *memoryStore) repos() repository.TxRepositories {
	return repository.TxRepositories{
		Products: &memProductRepo{m},
		Stores:   &memStoreRepo{m},
		Prices:   &memPriceRepo{m},
		History:  &memHistoryRepo{m},
		Audit:    &memAuditRepo{m},
	}
}

type memTransactor struct {
	store *memoryStore
}

func (t *memTransactor) WithinTx(ctx context.Context, fn func(repos repository.TxRepositories) error) (err error) {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	saved := t.store.save()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(saved)
			panic(p)
		}
	}()

	if err := fn(t.store.repos()); err != nil {
		t.store.restore(saved)
		return err
	}
	return nil
}

type memCategoryRepo struct{ m *memoryStore }

func (r *memCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.categories {
		if existing.Name == c.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	r.m.categories[c.ID] = *c
	return nil
}

func (r *memCategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range r.m.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *memCategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.categories[c.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	r.m.categories[c.ID] = *c
	return nil
}

func (r *memCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	for _, p := range r.m.products {
		if p.CategoryID == id {
			return repository.ErrCategoryInUse
		}
	}
	delete(r.m.categories, id)
	return nil
}

type memProductRepo struct{ m *memoryStore }

func (r *memProductRepo) Create(ctx context.Context, p *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) Update(ctx context.Context, p *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	r.m.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.m.products, id)
	return nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r *memProductRepo) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*domain.Product
	for _, p := range r.m.products {
		p := p
		if categoryID == nil || p.CategoryID == *categoryID {
			all = append(all, &p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page, pageSize), len(all), nil
}

func (r *memProductRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*domain.Product
	for _, p := range r.m.products {
		p := p
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			all = append(all, &p)
		}
	}
	return paginate(all, page, pageSize), len(all), nil
}

func paginate(all []*domain.Product, page, pageSize int) []*domain.Product {
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*domain.Product{}
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type memStoreRepo struct{ m *memoryStore }

func (r *memStoreRepo) Create(ctx context.Context, s *domain.Store) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.stores[s.ID] = *s
	return nil
}

func (r *memStoreRepo) List(ctx context.Context) ([]*domain.Store, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Store{}
	for _, s := range r.m.stores {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

func (r *memStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.stores[id]
	if !ok {
		return nil, repository.ErrStoreNotFound
	}
	return &s, nil
}

func (r *memStoreRepo) Update(ctx context.Context, s *domain.Store) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.stores[s.ID]; !ok {
		return repository.ErrStoreNotFound
	}
	r.m.stores[s.ID] = *s
	return nil
}

func (r *memStoreRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.stores[id]; !ok {
		return repository.ErrStoreNotFound
	}
	for _, p := range r.m.prices {
		if p.StoreID == id {
			return repository.ErrStoreInUse
		}
	}
	delete(r.m.stores, id)
	return nil
}

type memPriceRepo struct{ m *memoryStore }

func (r *memPriceRepo) Create(ctx context.Context, p *domain.Price) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[p.ProductID]; !ok {
		return domain.NewValidationError("product_id", "references a missing product")
	}
	if _, ok := r.m.stores[p.StoreID]; !ok {
		return domain.NewValidationError("store_id", "references a missing store")
	}
	if p.Version == 0 {
		p.Version = 1
	}
	stored := *p
	stored.Product, stored.Store = nil, nil
	r.m.prices[p.ID] = stored
	return nil
}

func (r *memPriceRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.prices[id]
	if !ok {
		return nil, repository.ErrPriceNotFound
	}
	return &p, nil
}

func (r *memPriceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	return r.FindByID(ctx, id)
}

func (r *memPriceRepo) Update(ctx context.Context, p *domain.Price) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.prices[p.ID]
	if !ok {
		return repository.ErrPriceNotFound
	}
	p.RecordedAt = current.RecordedAt
	p.Version = current.Version + 1
	stored := *p
	stored.Product, stored.Store = nil, nil
	r.m.prices[p.ID] = stored
	return nil
}

func (r *memPriceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.prices[id]; !ok {
		return repository.ErrPriceNotFound
	}
	delete(r.m.prices, id)
	return nil
}

func (r *memPriceRepo) resolve(p domain.Price) *domain.Price {
	product := r.m.products[p.ProductID]
	store := r.m.stores[p.StoreID]
	p.Product, p.Store = &product, &store
	return &p
}

func (r *memPriceRepo) FindAllWithProductAndStore(ctx context.Context) ([]*domain.Price, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Price{}
	for _, p := range r.m.prices {
		out = append(out, r.resolve(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (r *memPriceRepo) FindByProductID(ctx context.Context, productID uuid.UUID) ([]*domain.Price, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.Price{}
	for _, p := range r.m.prices {
		if p.ProductID == productID {
			out = append(out, r.resolve(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out, nil
}

type memHistoryRepo struct{ m *memoryStore }

func (r *memHistoryRepo) Create(ctx context.Context, h *domain.PriceHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failHistory != nil {
		return r.m.failHistory
	}
	r.m.history = append(r.m.history, *h)
	return nil
}

func (r *memHistoryRepo) FindByProductAndStoreInRange(ctx context.Context, productID, storeID uuid.UUID, from, to time.Time) ([]*domain.PriceHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.PriceHistory{}
	for _, h := range r.m.history {
		h := h
		if h.ProductID == productID && h.StoreID == storeID && !h.RecordedAt.Before(from) && h.RecordedAt.Before(to) {
			out = append(out, &h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (r *memHistoryRepo) ListByProductAndStore(ctx context.Context, productID, storeID uuid.UUID) ([]*domain.PriceHistory, error) {
	return r.FindByProductAndStoreInRange(ctx, productID, storeID, time.Time{}, time.Unix(1<<40, 0))
}

type memAuditRepo struct{ m *memoryStore }

func (r *memAuditRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.audit = append(r.m.audit, *e)
	return nil
}

func (r *memAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []*domain.AuditEntry{}
	for _, e := range r.m.audit {
		e := e
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, &e)
		}
	}
	return out, nil
}

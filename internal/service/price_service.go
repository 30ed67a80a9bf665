package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"price-catalog/internal/chart"
	"price-catalog/internal/clock"
	"price-catalog/internal/domain"
	"price-catalog/internal/export"
	"price-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPriceHistoryNotFound = domain.NewKindError("price history not found", domain.ErrNotFound)
	ErrPriceVersionConflict = domain.NewKindError("price was modified concurrently", domain.ErrConflict)
	ErrAdminRequired        = domain.NewKindError("admin role required", domain.ErrForbidden)
)

// PriceInput carries the mutable fields of a price.
// A non-zero Version must match the stored version for an update to apply.
type PriceInput struct {
	ProductID uuid.UUID
	StoreID   uuid.UUID
	Amount    int64
	Version   int64
}

func (in PriceInput) validate() error {
	if in.ProductID == uuid.Nil {
		return domain.NewValidationError("product_id", "is required")
	}
	if in.StoreID == uuid.Nil {
		return domain.NewValidationError("store_id", "is required")
	}
	if in.Amount < 0 {
		return domain.NewValidationError("amount", "must not be negative")
	}
	return nil
}

// PriceService manages current prices and their history ledger
type PriceService interface {
	Create(ctx context.Context, actor domain.Actor, in PriceInput) (*domain.Price, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Price, error)
	List(ctx context.Context) ([]*domain.Price, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in PriceInput) (*domain.Price, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	CompareByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Price, error)

	// HistoryInRange returns snapshots recorded on the calendar days [startDate, endDate], oldest first.
	// An endDate before startDate is a ValidationError rather than an empty result.
	HistoryInRange(ctx context.Context, productID, storeID uuid.UUID, startDate, endDate time.Time) ([]*domain.PriceHistory, error)
	Ledger(ctx context.Context, productID, storeID uuid.UUID) ([]*domain.PriceHistory, error)
	RenderHistoryChart(ctx context.Context, productID, storeID uuid.UUID, startDate, endDate time.Time) ([]byte, error)

	Export(ctx context.Context, codec export.Codec) ([]byte, error)
	Import(ctx context.Context, actor domain.Actor, codec export.Codec, payload []byte) ([]domain.PriceRecord, error)
	AuditTrail(ctx context.Context, actor domain.Actor, entityType string, entityID uuid.UUID) ([]*domain.AuditEntry, error)
}

// PriceServiceDeps are the collaborators of the price service
type PriceServiceDeps struct {
	Prices     repository.PriceRepository
	History    repository.PriceHistoryRepository
	Audit      repository.AuditLogRepository
	Transactor repository.Transactor
	Renderer   chart.Renderer
	Clock      clock.Clock
	// Location is where calendar dates of history queries are evaluated.
	Location *time.Location
	Logger   *zap.Logger
}

type priceService struct {
	PriceServiceDeps
}

// NewPriceService creates a new instance of PriceService
func NewPriceService(deps PriceServiceDeps) PriceService {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &priceService{PriceServiceDeps: deps}
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// requireReferences checks that the referenced product and store exist
func requireReferences(ctx context.Context, repos repository.TxRepositories, in PriceInput) error {
	if _, err := repos.Products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("product_id", "references a missing product")
		}
		return err
	}
	if _, err := repos.Stores.FindByID(ctx, in.StoreID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("store_id", "references a missing store")
		}
		return err
	}
	return nil
}

func (s *priceService) audit(ctx context.Context, repos repository.TxRepositories, actor domain.Actor, action string, priceID uuid.UUID, details map[string]any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	return repos.Audit.Create(ctx, &domain.AuditEntry{
		ID:         uuid.New(),
		ActorID:    actor.UserID,
		Action:     action,
		EntityType: domain.EntityPrice,
		EntityID:   priceID,
		Details:    string(raw),
		CreatedAt:  s.Clock.Now(),
	})
}

func (s *priceService) Create(ctx context.Context, actor domain.Actor, in PriceInput) (*domain.Price, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *domain.Price
	err := s.Transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		price, err := s.createPrice(ctx, repos, actor, uuid.New(), in, time.Time{}, domain.ActionCreate)
		created = price
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Price created",
		zap.String("price_id", created.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Int64("amount", created.Amount),
	)
	return created, nil
}

// createPrice inserts the price and then its opening snapshot
func (s *priceService) createPrice(ctx context.Context, repos repository.TxRepositories, actor domain.Actor, id uuid.UUID, in PriceInput, recordedAt time.Time, action string) (*domain.Price, error) {
	if err := requireReferences(ctx, repos, in); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if recordedAt.IsZero() {
		recordedAt = now
	}
	price := &domain.Price{
		ID:         id,
		ProductID:  in.ProductID,
		StoreID:    in.StoreID,
		Amount:     in.Amount,
		RecordedAt: recordedAt,
		UpdatedAt:  now,
		Version:    1,
	}

	if err := repos.Prices.Create(ctx, price); err != nil {
		return nil, fmt.Errorf("failed to create price: %w", err)
	}
	if err := repos.History.Create(ctx, domain.SnapshotOf(price, now)); err != nil {
		return nil, fmt.Errorf("failed to record price snapshot: %w", err)
	}
	if err := s.audit(ctx, repos, actor, action, price.ID, map[string]any{"amount": price.Amount}); err != nil {
		return nil, err
	}
	return price, nil
}

func (s *priceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Price, error) {
	return s.Prices.FindByID(ctx, id)
}

func (s *priceService) List(ctx context.Context) ([]*domain.Price, error) {
	return s.Prices.FindAllWithProductAndStore(ctx)
}

func (s *priceService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in PriceInput) (*domain.Price, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *domain.Price
	var previous int64
	err := s.Transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		current, err := repos.Prices.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = current.Amount
		updated, err = s.updatePrice(ctx, repos, actor, current, in, domain.ActionUpdate)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Price updated",
		zap.String("price_id", updated.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Int64("previous_amount", previous),
		zap.Int64("amount", updated.Amount),
		zap.Int64("version", updated.Version),
	)
	return updated, nil
}

// updatePrice snapshots the locked current value and then writes the new one
func (s *priceService) updatePrice(ctx context.Context, repos repository.TxRepositories, actor domain.Actor, current *domain.Price, in PriceInput, action string) (*domain.Price, error) {
	if in.Version != 0 && in.Version != current.Version {
		return nil, ErrPriceVersionConflict
	}
	// The history ledger is keyed by (product, store), so a price never moves between pairs.
	if in.ProductID != current.ProductID {
		return nil, domain.NewValidationError("product_id", "cannot be changed")
	}
	if in.StoreID != current.StoreID {
		return nil, domain.NewValidationError("store_id", "cannot be changed")
	}
	if err := requireReferences(ctx, repos, in); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if err := repos.History.Create(ctx, domain.SnapshotOf(current, now)); err != nil {
		return nil, fmt.Errorf("failed to record price snapshot: %w", err)
	}

	next := &domain.Price{
		ID:         current.ID,
		ProductID:  in.ProductID,
		StoreID:    in.StoreID,
		Amount:     in.Amount,
		RecordedAt: current.RecordedAt,
		UpdatedAt:  now,
		Version:    current.Version,
	}
	if err := repos.Prices.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to update price: %w", err)
	}

	details := map[string]any{"previous_amount": current.Amount, "amount": next.Amount, "version": next.Version}
	if err := s.audit(ctx, repos, actor, action, next.ID, details); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *priceService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	err := s.Transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		current, err := repos.Prices.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Prices.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete price: %w", err)
		}
		return s.audit(ctx, repos, actor, domain.ActionDelete, id, map[string]any{"amount": current.Amount})
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Price deleted", zap.String("price_id", id.String()), zap.String("actor_id", actor.UserID.String()))
	return nil
}

func (s *priceService) CompareByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Price, error) {
	return s.Prices.FindByProductID(ctx, productID)
}

func (s *priceService) HistoryInRange(ctx context.Context, productID, storeID uuid.UUID, startDate, endDate time.Time) ([]*domain.PriceHistory, error) {
	from, to := clock.DayRange(startDate, endDate, s.Location)
	if !from.Before(to) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}
	return s.History.FindByProductAndStoreInRange(ctx, productID, storeID, from, to)
}

func (s *priceService) Ledger(ctx context.Context, productID, storeID uuid.UUID) ([]*domain.PriceHistory, error) {
	return s.History.ListByProductAndStore(ctx, productID, storeID)
}

func (s *priceService) RenderHistoryChart(ctx context.Context, productID, storeID uuid.UUID, startDate, endDate time.Time) ([]byte, error) {
	history, err := s.HistoryInRange(ctx, productID, storeID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrPriceHistoryNotFound
	}

	points := make([]chart.Point, len(history))
	for i, h := range history {
		points[i] = chart.Point{At: h.RecordedAt, Amount: h.Amount}
	}

	title := fmt.Sprintf("Price history %s to %s",
		startDate.Format(clock.DateLayout), endDate.Format(clock.DateLayout))
	img, err := s.Renderer.Render(title, points)
	if err != nil {
		return nil, fmt.Errorf("failed to render price chart: %w", err)
	}
	return img, nil
}

func (s *priceService) Export(ctx context.Context, codec export.Codec) ([]byte, error) {
	prices, err := s.Prices.FindAllWithProductAndStore(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceRecord, len(prices))
	for i, p := range prices {
		records[i] = domain.RecordOf(p)
	}

	payload, err := codec.Encode(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prices: %w", err)
	}
	return payload, nil
}

// Import applies every record in one transaction: records whose id exists update
// that price (appending a snapshot), all others create a price.
func (s *priceService) Import(ctx context.Context, actor domain.Actor, codec export.Codec, payload []byte) ([]domain.PriceRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	records, err := codec.Decode(payload)
	if err != nil {
		return nil, err
	}

	inputs := make([]PriceInput, len(records))
	for i, rec := range records {
		in, err := inputFromRecord(rec)
		if err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				return nil, domain.NewValidationError(fmt.Sprintf("[%d].%s", i, vErr.Field), vErr.Message)
			}
			return nil, err
		}
		inputs[i] = in
	}

	materialized := make([]domain.PriceRecord, 0, len(records))
	err = s.Transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		for i, rec := range records {
			price, err := s.upsert(ctx, repos, actor, rec, inputs[i])
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			materialized = append(materialized, domain.RecordOf(price))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Prices imported", zap.Int("count", len(materialized)), zap.String("actor_id", actor.UserID.String()))
	return materialized, nil
}

func (s *priceService) upsert(ctx context.Context, repos repository.TxRepositories, actor domain.Actor, rec domain.PriceRecord, in PriceInput) (*domain.Price, error) {
	if rec.ID == nil {
		return s.createPrice(ctx, repos, actor, uuid.New(), in, rec.RecordedAt, domain.ActionImport)
	}

	current, err := repos.Prices.FindByIDForUpdate(ctx, *rec.ID)
	if errors.Is(err, repository.ErrPriceNotFound) {
		return s.createPrice(ctx, repos, actor, *rec.ID, in, rec.RecordedAt, domain.ActionImport)
	}
	if err != nil {
		return nil, err
	}
	return s.updatePrice(ctx, repos, actor, current, in, domain.ActionImport)
}

// inputFromRecord converts a wire record, rejecting missing references
func inputFromRecord(rec domain.PriceRecord) (PriceInput, error) {
	if rec.ProductID == nil {
		return PriceInput{}, domain.NewValidationError("product_id", "is required")
	}
	if rec.StoreID == nil {
		return PriceInput{}, domain.NewValidationError("store_id", "is required")
	}
	in := PriceInput{ProductID: *rec.ProductID, StoreID: *rec.StoreID, Amount: rec.Amount}
	return in, in.validate()
}

func (s *priceService) AuditTrail(ctx context.Context, actor domain.Actor, entityType string, entityID uuid.UUID) ([]*domain.AuditEntry, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if entityType == "" {
		entityType = domain.EntityPrice
	}
	return s.Audit.ListByEntity(ctx, entityType, entityID)
}

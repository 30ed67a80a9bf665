package transport

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"price-catalog/internal/clock"
	"price-catalog/internal/domain"
	"price-catalog/internal/export"
	"price-catalog/internal/middleware"
	"price-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImportBytes = 16 << 20

// PriceHandler serves current prices, their history and the audit trail
type PriceHandler struct {
	prices   service.PriceService
	location *time.Location
	clock    clock.Clock
	logger   *zap.Logger
}

// NewPriceHandler creates a new PriceHandler. Dates in query parameters are read in loc.
func NewPriceHandler(prices service.PriceService, loc *time.Location, clk clock.Clock, logger *zap.Logger) *PriceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PriceHandler{prices: prices, location: loc, clock: clk, logger: logger}
}

// RegisterRoutes registers price and audit-log routes
func (h *PriceHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware Middleware) {
	r.Route("/api/prices", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/export", h.Export)
		r.Get("/compare/{productId}", h.Compare)
		r.Get("/history/{productId}", h.History)
		r.Get("/history/{productId}/chart", h.HistoryChart)
		r.Get("/history/{productId}/ledger", h.Ledger)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
			r.Post("/import", h.Import)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})

	r.Route("/api/audit-log", func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Get("/", h.AuditLog)
	})
}

func (h *PriceHandler) fail(w http.ResponseWriter, err error) {
	middleware.RespondWithDomainError(w, err, h.logger)
}

func (h *PriceHandler) List(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPriceResponses(prices))
}

func (h *PriceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	price, err := h.prices.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPriceResponse(price))
}

func (h *PriceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req PriceRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, err)
		return
	}

	price, err := h.prices.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, toPriceResponse(price))
}

func (h *PriceHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}

	var req PriceRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, err)
		return
	}

	price, err := h.prices.Update(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPriceResponse(price))
}

func (h *PriceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.prices.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Compare lists the current prices of one product across stores, cheapest first
func (h *PriceHandler) Compare(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, err)
		return
	}
	prices, err := h.prices.CompareByProduct(r.Context(), productID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toPriceResponses(prices))
}

type historyQuery struct {
	productID uuid.UUID
	storeID   uuid.UUID
	start     time.Time
	end       time.Time
}

func (h *PriceHandler) historyQueryFrom(r *http.Request) (historyQuery, error) {
	var q historyQuery
	var err error
	if q.productID, err = pathID(r, "productId"); err != nil {
		return q, err
	}
	if q.storeID, err = queryID(r, "store_id"); err != nil {
		return q, err
	}
	if q.start, err = queryDate(r, "start_date", h.location); err != nil {
		return q, err
	}
	if q.end, err = queryDate(r, "end_date", h.location); err != nil {
		return q, err
	}
	return q, nil
}

// History returns snapshots recorded between start_date and end_date inclusive
func (h *PriceHandler) History(w http.ResponseWriter, r *http.Request) {
	q, err := h.historyQueryFrom(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	entries, err := h.prices.HistoryInRange(r.Context(), q.productID, q.storeID, q.start, q.end)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, HistoryResponse{
		ProductID: q.productID,
		StoreID:   q.storeID,
		StartDate: q.start.Format(clock.DateLayout),
		EndDate:   q.end.Format(clock.DateLayout),
		Entries:   entries,
	})
}

// HistoryChart renders the windowed history as an image
func (h *PriceHandler) HistoryChart(w http.ResponseWriter, r *http.Request) {
	q, err := h.historyQueryFrom(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	img, err := h.prices.RenderHistoryChart(r.Context(), q.productID, q.storeID, q.start, q.end)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithFile(w, "image/png", "", img)
}

// Ledger returns every snapshot of a product at a store
func (h *PriceHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, err)
		return
	}
	storeID, err := queryID(r, "store_id")
	if err != nil {
		h.fail(w, err)
		return
	}

	entries, err := h.prices.Ledger(r.Context(), productID, storeID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, HistoryResponse{ProductID: productID, StoreID: storeID, Entries: entries})
}

// Export writes all current prices in the requested format (json or xlsx)
func (h *PriceHandler) Export(w http.ResponseWriter, r *http.Request) {
	codec, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, err)
		return
	}

	payload, err := h.prices.Export(r.Context(), codec)
	if err != nil {
		h.fail(w, err)
		return
	}

	filename := fmt.Sprintf("prices-%s.%s", h.clock.Now().In(h.location).Format(clock.DateLayout), codec.Extension())
	middleware.RespondWithFile(w, codec.ContentType(), filename, payload)
}

// Import applies a JSON or xlsx payload of price records atomically
func (h *PriceHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	codec := codecForContentType(r.Header.Get("Content-Type"))
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "import payload too large")
			return
		}
		h.fail(w, domain.SerializationError(err))
		return
	}

	records, err := h.prices.Import(r.Context(), actor, codec, payload)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ImportResponse{Count: len(records), Records: records})
}

func codecForContentType(contentType string) export.Codec {
	xlsx := export.NewXLSXCodec()
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == xlsx.ContentType() {
		return xlsx
	}
	return export.NewJSONCodec()
}

// AuditLog lists audit entries of one entity
func (h *PriceHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	entityID, err := queryID(r, "entity_id")
	if err != nil {
		h.fail(w, err)
		return
	}

	entries, err := h.prices.AuditTrail(r.Context(), actor, r.URL.Query().Get("entity_type"), entityID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, entries)
}

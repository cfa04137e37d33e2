package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openrits/openrits/internal/domain"
	"github.com/openrits/openrits/internal/telemetry"
)

type CategoryStore interface {
	Create(ctx context.Context, name string, parentID *int64) (*domain.ItemCategory, error)
	Get(ctx context.Context, id int64) (*domain.ItemCategory, error)
	List(ctx context.Context) ([]domain.ItemCategory, error)
	FilterDescendants(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategory, error)
	FilterAncestors(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategory, error)
	UpdateParent(ctx context.Context, id int64, parentID *int64) (*domain.ItemCategory, error)
	Delete(ctx context.Context, id int64) error
}

type PropertyStore interface {
	Create(ctx context.Context, categoryID int64, name string, propertyType domain.PropertyType) (*domain.ItemCategoryProperty, error)
	Delete(ctx context.Context, id int64) error
	FilterRelevantFor(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategoryProperty, error)
}

type ItemStore interface {
	Create(ctx context.Context, item *domain.Item) error
	Get(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	Update(ctx context.Context, id int64, patch ItemPatch) (*domain.Item, error)
}

type ValueStore interface {
	FilterRelevantFor(ctx context.Context, itemID int64) ([]domain.ItemPropertyValue, error)
	FilterObsoleteFor(ctx context.Context, itemID int64) ([]domain.ItemPropertyValue, error)
	Set(ctx context.Context, itemID, propertyID int64, value any) (*domain.ItemPropertyValue, error)
	PurgeObsolete(ctx context.Context, itemID int64) (int64, error)
}

type Handler struct {
	categories CategoryStore
	properties PropertyStore
	items      ItemStore
	values     ValueStore
	logger     *slog.Logger
}

func NewHandler(categories CategoryStore, properties PropertyStore, items ItemStore, values ValueStore, logger *slog.Logger) *Handler {
	return &Handler{
		categories: categories,
		properties: properties,
		items:      items,
		values:     values,
		logger:     logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(h.HandleListCategories))
	mux.HandleFunc("POST /categories", telemetry.WithHTTPRoute(h.HandleCreateCategory))
	mux.HandleFunc("GET /categories/{id}", telemetry.WithHTTPRoute(h.HandleGetCategory))
	mux.HandleFunc("DELETE /categories/{id}", telemetry.WithHTTPRoute(h.HandleDeleteCategory))
	mux.HandleFunc("GET /categories/{id}/descendants", telemetry.WithHTTPRoute(h.HandleDescendants))
	mux.HandleFunc("GET /categories/{id}/ancestors", telemetry.WithHTTPRoute(h.HandleAncestors))
	mux.HandleFunc("PUT /categories/{id}/parent", telemetry.WithHTTPRoute(h.HandleUpdateParent))
	mux.HandleFunc("GET /categories/{id}/properties", telemetry.WithHTTPRoute(h.HandleListProperties))
	mux.HandleFunc("POST /categories/{id}/properties", telemetry.WithHTTPRoute(h.HandleCreateProperty))
	mux.HandleFunc("DELETE /properties/{id}", telemetry.WithHTTPRoute(h.HandleDeleteProperty))
	mux.HandleFunc("GET /items", telemetry.WithHTTPRoute(h.HandleListItems))
	mux.HandleFunc("POST /items", telemetry.WithHTTPRoute(h.HandleCreateItem))
	mux.HandleFunc("GET /items/{id}", telemetry.WithHTTPRoute(h.HandleGetItem))
	mux.HandleFunc("PATCH /items/{id}", telemetry.WithHTTPRoute(h.HandleUpdateItem))
	mux.HandleFunc("GET /items/{id}/properties", telemetry.WithHTTPRoute(h.HandleRelevantValues))
	mux.HandleFunc("PUT /items/{id}/properties/{propId}", telemetry.WithHTTPRoute(h.HandleSetValue))
	mux.HandleFunc("GET /items/{id}/properties/obsolete", telemetry.WithHTTPRoute(h.HandleObsoleteValues))
	mux.HandleFunc("DELETE /items/{id}/properties/obsolete", telemetry.WithHTTPRoute(h.HandlePurgeObsolete))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeStoreError maps domain errors to HTTP statuses; anything unknown is
// logged and reported as 500.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrCategoryCycle),
		errors.Is(err, domain.ErrPropertyNotRelevant),
		errors.Is(err, domain.ErrInvalidPropertyValue),
		errors.Is(err, domain.ErrUnsupportedPropertyType):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

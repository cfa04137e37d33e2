package rentals

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

type CustomerStore interface {
	Create(ctx context.Context, c *domain.Customer) error
	Get(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
}

type AttributeStore interface {
	Define(ctx context.Context, name string) (*domain.Attribute, error)
	List(ctx context.Context) ([]domain.Attribute, error)
	Set(ctx context.Context, ownerID, attributeID int64, value string) error
	Values(ctx context.Context, ownerID int64) ([]domain.AttributeValue, error)
}

type RentManager interface {
	Create(ctx context.Context, rent *domain.Rent) error
	Get(ctx context.Context, id int64) (*domain.Rent, error)
	List(ctx context.Context, filter domain.RentFilter) ([]domain.Rent, error)
	Issue(ctx context.Context, id int64) (*domain.Rent, error)
	Return(ctx context.Context, id int64) (*domain.Rent, error)
	Availability(ctx context.Context, itemID int64, start, end domain.Date) (domain.Availability, error)
}

type Handler struct {
	customers          CustomerStore
	customerAttributes AttributeStore
	rentAttributes     AttributeStore
	rents              RentManager
	logger             *slog.Logger
}

func NewHandler(customers CustomerStore, customerAttributes, rentAttributes AttributeStore, rents RentManager, logger *slog.Logger) *Handler {
	return &Handler{
		customers:          customers,
		customerAttributes: customerAttributes,
		rentAttributes:     rentAttributes,
		rents:              rents,
		logger:             logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /customers", telemetry.WithHTTPRoute(h.HandleListCustomers))
	mux.HandleFunc("POST /customers", telemetry.WithHTTPRoute(h.HandleCreateCustomer))
	mux.HandleFunc("GET /customers/{id}", telemetry.WithHTTPRoute(h.HandleGetCustomer))

	customerAttrs := attributeRoutes{h: h, store: h.customerAttributes, owner: "customer"}
	mux.HandleFunc("GET /customer-properties", telemetry.WithHTTPRoute(customerAttrs.handleList))
	mux.HandleFunc("POST /customer-properties", telemetry.WithHTTPRoute(customerAttrs.handleDefine))
	mux.HandleFunc("GET /customers/{id}/properties", telemetry.WithHTTPRoute(customerAttrs.handleValues))
	mux.HandleFunc("PUT /customers/{id}/properties/{propId}", telemetry.WithHTTPRoute(customerAttrs.handleSet))

	rentAttrs := attributeRoutes{h: h, store: h.rentAttributes, owner: "rent"}
	mux.HandleFunc("GET /rent-properties", telemetry.WithHTTPRoute(rentAttrs.handleList))
	mux.HandleFunc("POST /rent-properties", telemetry.WithHTTPRoute(rentAttrs.handleDefine))
	mux.HandleFunc("GET /rents/{id}/properties", telemetry.WithHTTPRoute(rentAttrs.handleValues))
	mux.HandleFunc("PUT /rents/{id}/properties/{propId}", telemetry.WithHTTPRoute(rentAttrs.handleSet))

	mux.HandleFunc("GET /rents", telemetry.WithHTTPRoute(h.HandleListRents))
	mux.HandleFunc("POST /rents", telemetry.WithHTTPRoute(h.HandleCreateRent))
	mux.HandleFunc("GET /rents/{id}", telemetry.WithHTTPRoute(h.HandleGetRent))
	mux.HandleFunc("POST /rents/{id}/issue", telemetry.WithHTTPRoute(h.HandleIssueRent))
	mux.HandleFunc("POST /rents/{id}/return", telemetry.WithHTTPRoute(h.HandleReturnRent))
	mux.HandleFunc("GET /availability/{itemId}", telemetry.WithHTTPRoute(h.HandleAvailability))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, ErrDuplicateAttribute):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrItemArchived):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrItemRejected):
		h.writeError(w, http.StatusBadRequest, err.Error())
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

func (h *Handler) HandleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.ID = 0

	if err := c.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.customers.Create(r.Context(), &c); err != nil {
		h.writeStoreError(w, err, "failed to create customer")
		return
	}

	h.logger.Info("customer created", "customer_id", c.ID)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	c, err := h.customers.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to get customer", "customer_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "failed to list customers")
		return
	}

	h.logger.Info("customers listed", "count", len(customers))
	h.writeJSON(w, http.StatusOK, customers)
}

// attributeRoutes serves the same attribute endpoints for customers and rents.
type attributeRoutes struct {
	h     *Handler
	store AttributeStore
	owner string
}

type defineAttributeRequest struct {
	Name string `json:"name"`
}

func (a attributeRoutes) handleDefine(w http.ResponseWriter, r *http.Request) {
	var req defineAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := domain.ValidateName(req.Name); err != nil {
		a.h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attr, err := a.store.Define(r.Context(), req.Name)
	if err != nil {
		a.h.writeStoreError(w, err, "failed to define attribute", "owner", a.owner)
		return
	}

	a.h.logger.Info("attribute defined", "owner", a.owner, "attribute_id", attr.ID, "name", attr.Name)
	a.h.writeJSON(w, http.StatusCreated, attr)
}

func (a attributeRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	attrs, err := a.store.List(r.Context())
	if err != nil {
		a.h.writeStoreError(w, err, "failed to list attributes", "owner", a.owner)
		return
	}
	a.h.writeJSON(w, http.StatusOK, attrs)
}

func (a attributeRoutes) handleValues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		a.h.writeError(w, http.StatusBadRequest, "invalid "+a.owner+" id")
		return
	}

	values, err := a.store.Values(r.Context(), id)
	if err != nil {
		a.h.writeStoreError(w, err, "failed to list attribute values", "owner", a.owner, "owner_id", id)
		return
	}
	a.h.writeJSON(w, http.StatusOK, values)
}

type setAttributeRequest struct {
	Value string `json:"value"`
}

func (a attributeRoutes) handleSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		a.h.writeError(w, http.StatusBadRequest, "invalid "+a.owner+" id")
		return
	}
	attrID, ok := pathID(r, "propId")
	if !ok {
		a.h.writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	var req setAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.store.Set(r.Context(), id, attrID, req.Value); err != nil {
		a.h.writeStoreError(w, err, "failed to set attribute value", "owner", a.owner, "owner_id", id, "attribute_id", attrID)
		return
	}

	a.h.logger.Info("attribute value set", "owner", a.owner, "owner_id", id, "attribute_id", attrID)
	w.WriteHeader(http.StatusNoContent)
}

package rentals

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/openrits/openrits/internal/domain"
)

type createRentRequest struct {
	CustomerID int64             `json:"customer_id"`
	Start      domain.Date       `json:"start"`
	End        domain.Date       `json:"end"`
	Items      []domain.RentItem `json:"items"`
}

func (h *Handler) HandleCreateRent(w http.ResponseWriter, r *http.Request) {
	var req createRentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rent := &domain.Rent{
		CustomerID: req.CustomerID,
		Start:      req.Start,
		End:        req.End,
		Items:      req.Items,
	}
	if err := rent.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rents.Create(r.Context(), rent); err != nil {
		h.writeStoreError(w, err, "failed to create rent", "customer_id", req.CustomerID)
		return
	}

	h.logger.Info("rent created", "rent_id", rent.ID, "customer_id", rent.CustomerID, "items", len(rent.Items))
	h.writeJSON(w, http.StatusCreated, rentResponse(rent))
}

type rentView struct {
	*domain.Rent
	Status domain.RentStatus `json:"status"`
}

func rentResponse(rent *domain.Rent) rentView {
	return rentView{Rent: rent, Status: rent.Status()}
}

func (h *Handler) HandleGetRent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid rent id")
		return
	}

	rent, err := h.rents.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to get rent", "rent_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, rentResponse(rent))
}

func parseRentFilter(r *http.Request) (domain.RentFilter, error) {
	var filter domain.RentFilter
	q := r.URL.Query()

	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &id
	}

	if v := q.Get("status"); v != "" {
		status, err := domain.ParseRentStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

func (h *Handler) HandleListRents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRentFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	rents, err := h.rents.List(r.Context(), filter)
	if err != nil {
		h.writeStoreError(w, err, "failed to list rents")
		return
	}

	views := make([]rentView, 0, len(rents))
	for i := range rents {
		views = append(views, rentResponse(&rents[i]))
	}

	h.logger.Info("rents listed", "count", len(rents))
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleIssueRent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid rent id")
		return
	}

	rent, err := h.rents.Issue(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to issue rent", "rent_id", id)
		return
	}

	h.logger.Info("rent issued", "rent_id", rent.ID)
	h.writeJSON(w, http.StatusOK, rentResponse(rent))
}

func (h *Handler) HandleReturnRent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid rent id")
		return
	}

	rent, err := h.rents.Return(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to return rent", "rent_id", id)
		return
	}

	h.logger.Info("rent returned", "rent_id", rent.ID)
	h.writeJSON(w, http.StatusOK, rentResponse(rent))
}

func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "itemId")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	start, err := domain.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := domain.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}
	if end.Before(start.Time) {
		h.writeError(w, http.StatusBadRequest, "end is before start")
		return
	}

	availability, err := h.rents.Availability(r.Context(), itemID, start, end)
	if err != nil {
		h.writeStoreError(w, err, "failed to compute availability", "item_id", itemID)
		return
	}

	h.writeJSON(w, http.StatusOK, availability)
}

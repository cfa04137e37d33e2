package inventory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/openrits/openrits/internal/domain"
)

type createItemRequest struct {
	Name       string `json:"name"`
	Amount     int    `json:"amount"`
	CategoryID *int64 `json:"category_id"`
}

func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateName(req.Name); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &domain.Item{Name: req.Name, Amount: req.Amount, CategoryID: req.CategoryID}
	if err := h.items.Create(r.Context(), item); err != nil {
		h.writeStoreError(w, err, "failed to create item", "name", req.Name)
		return
	}

	h.logger.Info("item created", "item_id", item.ID, "amount", item.Amount)
	h.writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to get item", "item_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

func parseItemFilter(r *http.Request) (domain.ItemFilter, error) {
	q := r.URL.Query()
	filter := domain.ItemFilter{Query: q.Get("q")}

	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CategoryID = &id
	}

	if v := q.Get("include_descendants"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, err
		}
		filter.IncludeDescendants = b
	}

	if v := q.Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, err
		}
		filter.Archived = &b
	}

	return filter, nil
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	items, err := h.items.List(r.Context(), filter)
	if err != nil {
		h.writeStoreError(w, err, "failed to list items")
		return
	}

	h.logger.Info("items listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

type updateItemRequest struct {
	Name       *string         `json:"name"`
	Amount     *int            `json:"amount"`
	Archived   *bool           `json:"archived"`
	CategoryID json.RawMessage `json:"category_id"`
}

func (req updateItemRequest) patch() (ItemPatch, error) {
	patch := ItemPatch{Name: req.Name, Amount: req.Amount, Archived: req.Archived}
	if len(req.CategoryID) == 0 {
		return patch, nil
	}
	if bytes.Equal(req.CategoryID, []byte("null")) {
		patch.ClearCategory = true
		return patch, nil
	}
	var id int64
	if err := json.Unmarshal(req.CategoryID, &id); err != nil {
		return patch, err
	}
	patch.CategoryID = &id
	return patch, nil
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch, err := req.patch()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid category_id")
		return
	}
	if patch.Name != nil {
		if err := domain.ValidateName(*patch.Name); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Amount != nil {
		if err := domain.ValidateAmount(*patch.Amount); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	item, err := h.items.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, err, "failed to update item", "item_id", id)
		return
	}

	h.logger.Info("item updated", "item_id", item.ID, "archived", item.Archived)
	h.writeJSON(w, http.StatusOK, item)
}

type valueResponse struct {
	ID       int64                       `json:"id"`
	Property domain.ItemCategoryProperty `json:"property"`
	Value    any                         `json:"value"`
	Raw      string                      `json:"raw"`
}

// toValueResponses deserializes stored values. A value that no longer parses
// (for instance after a property type change in the database) is reported
// with a nil value and its raw text.
func (h *Handler) toValueResponses(values []domain.ItemPropertyValue) []valueResponse {
	out := make([]valueResponse, 0, len(values))
	for _, v := range values {
		typed, err := v.Typed()
		if err != nil {
			h.logger.Warn("stored property value does not deserialize", "error", err, "value_id", v.ID)
		}
		out = append(out, valueResponse{ID: v.ID, Property: v.Property, Value: typed, Raw: v.Value})
	}
	return out
}

func (h *Handler) HandleRelevantValues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	values, err := h.values.FilterRelevantFor(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to list property values", "item_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toValueResponses(values))
}

func (h *Handler) HandleObsoleteValues(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	values, err := h.values.FilterObsoleteFor(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to list obsolete property values", "item_id", id)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toValueResponses(values))
}

func (h *Handler) HandlePurgeObsolete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	deleted, err := h.values.PurgeObsolete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to purge obsolete property values", "item_id", id)
		return
	}

	h.logger.Info("obsolete property values purged", "item_id", id, "deleted", deleted)
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type setValueRequest struct {
	Value any `json:"value"`
}

func (h *Handler) HandleSetValue(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	propertyID, ok := pathID(r, "propId")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req setValueRequest
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, err := h.values.Set(r.Context(), itemID, propertyID, req.Value)
	if err != nil {
		h.writeStoreError(w, err, "failed to set property value", "item_id", itemID, "property_id", propertyID)
		return
	}

	h.logger.Info("property value set", "item_id", itemID, "property_id", propertyID)
	h.writeJSON(w, http.StatusOK, h.toValueResponses([]domain.ItemPropertyValue{*value})[0])
}

package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/openrits/openrits/internal/domain"
)

type createCategoryRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateName(req.Name); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name, req.ParentID)
	if err != nil {
		h.writeStoreError(w, err, "failed to create category", "name", req.Name)
		return
	}

	h.logger.Info("category created", "category_id", category.ID, "lineage", category.Lineage)
	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.writeStoreError(w, err, "failed to list categories")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

// category loads the category named by the {id} path value, writing the
// error response itself when it returns nil.
func (h *Handler) category(w http.ResponseWriter, r *http.Request) *domain.ItemCategory {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid category id")
		return nil
	}

	category, err := h.categories.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to get category", "category_id", id)
		return nil
	}
	return category
}

func (h *Handler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	category := h.category(w, r)
	if category == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) HandleDescendants(w http.ResponseWriter, r *http.Request) {
	category := h.category(w, r)
	if category == nil {
		return
	}

	descendants, err := h.categories.FilterDescendants(r.Context(), category)
	if err != nil {
		h.writeStoreError(w, err, "failed to list descendants", "category_id", category.ID)
		return
	}

	h.writeJSON(w, http.StatusOK, descendants)
}

func (h *Handler) HandleAncestors(w http.ResponseWriter, r *http.Request) {
	category := h.category(w, r)
	if category == nil {
		return
	}

	ancestors, err := h.categories.FilterAncestors(r.Context(), category)
	if err != nil {
		h.writeStoreError(w, err, "failed to list ancestors", "category_id", category.ID)
		return
	}

	h.writeJSON(w, http.StatusOK, ancestors)
}

type updateParentRequest struct {
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) HandleUpdateParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req updateParentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categories.UpdateParent(r.Context(), id, req.ParentID)
	if err != nil {
		h.writeStoreError(w, err, "failed to update category parent", "category_id", id)
		return
	}

	h.logger.Info("category moved", "category_id", category.ID, "parent_id", category.ParentID, "lineage", category.Lineage)
	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete category", "category_id", id)
		return
	}

	h.logger.Info("category deleted", "category_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type createPropertyRequest struct {
	Name         string `json:"name"`
	PropertyType string `json:"property_type"`
}

func (h *Handler) HandleCreateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := domain.ValidateName(req.Name); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	propertyType, err := domain.ParsePropertyType(req.PropertyType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	property, err := h.properties.Create(r.Context(), id, req.Name, propertyType)
	if err != nil {
		h.writeStoreError(w, err, "failed to create property", "category_id", id)
		return
	}

	h.logger.Info("property created", "property_id", property.ID, "category_id", id, "type", propertyType)
	h.writeJSON(w, http.StatusCreated, property)
}

func (h *Handler) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	category := h.category(w, r)
	if category == nil {
		return
	}

	properties, err := h.properties.FilterRelevantFor(r.Context(), category)
	if err != nil {
		h.writeStoreError(w, err, "failed to list properties", "category_id", category.ID)
		return
	}

	h.writeJSON(w, http.StatusOK, properties)
}

func (h *Handler) HandleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	if err := h.properties.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete property", "property_id", id)
		return
	}

	h.logger.Info("property deleted", "property_id", id)
	w.WriteHeader(http.StatusNoContent)
}

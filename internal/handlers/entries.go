package handlers

import (
	"net/http"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/services"
)

// EntryHandler serves /entries and /search.
type EntryHandler struct {
	*Base
	entries *services.EntryService
	catalog *services.CatalogService
}

func NewEntryHandler(base *Base, entries *services.EntryService, catalog *services.CatalogService) *EntryHandler {
	return &EntryHandler{Base: base, entries: entries, catalog: catalog}
}

// List handles GET /entries.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	filter, err := services.ParseEntryFilter(r.URL.Query(), services.EntryListParams)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	entries, page, err := h.entries.List(r.Context(), user.ID, filter)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.Page(w, entries, len(entries), page)
}

// Search handles GET /search. It needs a text query or at least one filter.
func (h *EntryHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	filter, err := services.ParseEntryFilter(r.URL.Query(), services.SearchParams)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if !filter.HasCriteria() {
		h.Error(w, r, apperrors.Validation("Provide a search query or at least one filter"))
		return
	}
	entries, page, err := h.entries.List(r.Context(), user.ID, filter)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.Page(w, entries, len(entries), page)
}

// Create handles POST /entries.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req services.EntryInput
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	entry, err := h.entries.Create(r.Context(), user.ID, req)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, map[string]interface{}{"entry": entry})
}

// Categories handles GET /entries/categories.
func (h *EntryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	categories, err := h.catalog.CategoriesFor(r.Context(), user.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// Get handles GET /entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "entry")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	entry, err := h.entries.Get(r.Context(), user.ID, id)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// Update handles PATCH /entries/{id}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "entry")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req services.EntryUpdateInput
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	entry, err := h.entries.Update(r.Context(), user.ID, id, req)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

// Delete handles DELETE /entries/{id}. The entry is soft deleted and its mood removed.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "entry")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if err := h.entries.Delete(r.Context(), user.ID, id); err != nil {
		h.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles PATCH /entries/{id}/restore.
func (h *EntryHandler) Restore(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "entry")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	entry, err := h.entries.Restore(r.Context(), user.ID, id)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"entry": entry})
}

package handlers

import (
	"net/http"

	"github.com/bsrBe/Vent/internal/services"
)

// MoodHandler serves /moods, including the aggregation endpoints.
type MoodHandler struct {
	*Base
	moods   *services.MoodService
	catalog *services.CatalogService
	stats   *services.StatsService
}

func NewMoodHandler(base *Base, moods *services.MoodService, catalog *services.CatalogService, stats *services.StatsService) *MoodHandler {
	return &MoodHandler{Base: base, moods: moods, catalog: catalog, stats: stats}
}

// Types handles GET /moods/types.
func (h *MoodHandler) Types(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	types, err := h.catalog.MoodTypesFor(r.Context(), user.ID)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"moodTypes": types})
}

// Stats handles GET /moods/stats?from&to.
func (h *MoodHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	window, err := services.ParseWindow(r.URL.Query(), h.stats.Now())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	stats, err := h.stats.Stats(r.Context(), user.ID, window)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, stats)
}

// Calendar handles GET /moods/calendar?year&month.
func (h *MoodHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	window, err := services.ParseMonth(r.URL.Query(), h.stats.Now())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	calendar, err := h.stats.Calendar(r.Context(), user.ID, window)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, calendar)
}

// Insights handles GET /moods/insights?from&to.
func (h *MoodHandler) Insights(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	window, err := services.ParseWindow(r.URL.Query(), h.stats.Now())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	insights, err := h.stats.Insights(r.Context(), user.ID, window)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, insights)
}

// List handles GET /moods.
func (h *MoodHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	filter, err := services.ParseMoodFilter(r.URL.Query(), services.MoodListParams)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	moods, page, err := h.moods.List(r.Context(), user.ID, filter)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.Page(w, moods, len(moods), page)
}

// Create handles POST /moods for a mood not attached to an entry.
func (h *MoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req services.MoodInput
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	mood, err := h.moods.Create(r.Context(), user.ID, req)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, map[string]interface{}{"mood": mood})
}

// Get handles GET /moods/{id}.
func (h *MoodHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "mood")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	mood, err := h.moods.Get(r.Context(), user.ID, id)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"mood": mood})
}

// Update handles PATCH /moods/{id}.
func (h *MoodHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "mood")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	var req services.MoodUpdateInput
	if err := h.Decode(w, r, &req); err != nil {
		h.Error(w, r, err)
		return
	}
	mood, err := h.moods.Update(r.Context(), user.ID, id, req)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, map[string]interface{}{"mood": mood})
}

// Delete handles DELETE /moods/{id}. A linked entry loses its mood reference.
func (h *MoodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	id, err := h.pathID(r, "mood")
	if err != nil {
		h.Error(w, r, err)
		return
	}
	if err := h.moods.Delete(r.Context(), user.ID, id); err != nil {
		h.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

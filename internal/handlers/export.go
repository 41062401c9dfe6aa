package handlers

import (
	"net/http"

	"github.com/bsrBe/Vent/internal/services"
)

type ExportHandler struct {
	*Base
	export *services.ExportService
}

func NewExportHandler(base *Base, export *services.ExportService) *ExportHandler {
	return &ExportHandler{Base: base, export: export}
}

// Entries handles GET /export/entries?format=json|csv. Filters match GET /entries without paging.
func (h *ExportHandler) Entries(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	query := r.URL.Query()
	format, err := services.ParseFormat(query.Get(services.ParamFormat))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	filter, err := services.ParseEntryFilter(query, services.EntryExportParams)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	file, err := h.export.Entries(r.Context(), user.ID, filter, format)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.File(w, file)
}

// Moods handles GET /export/moods?format=json|csv.
func (h *ExportHandler) Moods(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	query := r.URL.Query()
	format, err := services.ParseFormat(query.Get(services.ParamFormat))
	if err != nil {
		h.Error(w, r, err)
		return
	}
	filter, err := services.ParseMoodFilter(query, services.MoodExportParams)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	file, err := h.export.Moods(r.Context(), user.ID, filter, format)
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.File(w, file)
}

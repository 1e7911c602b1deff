package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formr/engine/internal/api/types"
	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/internal/services"
	"github.com/formr/engine/pkg/utils"
)

type ControlsHandler struct {
	svc services.ControlLibraryService
}

func NewControlsHandler(svc services.ControlLibraryService) *ControlsHandler {
	return &ControlsHandler{svc: svc}
}

// Library godoc
// @Summary List the control library
// @Description Returns every control type the designer can place, ordered by category then type.
// @Tags Controls
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.APIResponse{data=[]types.LibraryEntryResponse}
// @Success 304
// @Router /api/v1/controls/library [get]
func (h *ControlsHandler) Library(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListLibrary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.LibraryEntryResponse, len(entries))
	for i := range entries {
		out[i] = types.NewLibraryEntryResponse(&entries[i])
	}
	body, err := json.Marshal(types.APIResponse{Success: true, Data: out})
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag := utils.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Instantiate godoc
// @Summary Instantiate a control
// @Description Builds an unsaved control of the given type from its library defaults, placed at (x, y).
// @Tags Controls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Control type"
// @Param request body types.InstantiateRequest false "Drop position"
// @Success 200 {object} types.APIResponse{data=types.ControlResponse}
// @Failure 400 {object} types.APIResponse
// @Failure 404 {object} types.APIResponse
// @Router /api/v1/controls/library/{type}/instantiate [post]
func (h *ControlsHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	var req types.InstantiateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Instantiate(r.Context(), models.ControlType(chi.URLParam(r, "type")), req.X, req.Y)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.NewControlResponse(c)})
}

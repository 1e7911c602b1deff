package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/formr/engine/internal/api/types"
	"github.com/formr/engine/internal/services"
)

// InstancesHandler exposes form submissions. The service does not build them
// yet, so every route answers 501 once the request itself is well formed.
type InstancesHandler struct {
	svc services.InstanceService
}

func NewInstancesHandler(svc services.InstanceService) *InstancesHandler {
	return &InstancesHandler{svc: svc}
}

// ListForTemplate godoc
// @Summary List instances of a template
// @Tags Instances
// @Security BearerAuth
// @Param id path string true "Template id"
// @Failure 501 {object} types.APIResponse
// @Router /api/v1/templates/{id}/instances [get]
func (h *InstancesHandler) ListForTemplate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ListInstances(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}

// Create godoc
// @Summary Submit a template instance
// @Tags Instances
// @Accept json
// @Security BearerAuth
// @Param id path string true "Template id"
// @Failure 501 {object} types.APIResponse
// @Router /api/v1/templates/{id}/instances [post]
func (h *InstancesHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var data json.RawMessage
	if !decodeJSON(w, r, &data) {
		return
	}
	out, err := h.svc.CreateInstance(r.Context(), tenant, id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: out})
}

// Get godoc
// @Summary Get an instance
// @Tags Instances
// @Security BearerAuth
// @Param id path string true "Instance id"
// @Failure 501 {object} types.APIResponse
// @Router /api/v1/instances/{id} [get]
func (h *InstancesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetInstance(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}

// Update godoc
// @Summary Update an instance
// @Tags Instances
// @Accept json
// @Security BearerAuth
// @Param id path string true "Instance id"
// @Failure 501 {object} types.APIResponse
// @Router /api/v1/instances/{id} [put]
func (h *InstancesHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var data json.RawMessage
	if !decodeJSON(w, r, &data) {
		return
	}
	out, err := h.svc.UpdateInstance(r.Context(), tenant, id, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}

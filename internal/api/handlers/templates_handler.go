package handlers

import (
	"net/http"
	"strings"

	"github.com/formr/engine/internal/api/types"
	"github.com/formr/engine/internal/services"
)

type TemplatesHandler struct {
	svc services.TemplateService
}

func NewTemplatesHandler(svc services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{svc: svc}
}

// List godoc
// @Summary List templates
// @Description Returns the tenant's templates, most recently modified first.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size (max 100)" default(20)
// @Success 200 {object} types.APIResponse{data=[]types.TemplateSummary}
// @Failure 401 {object} types.APIResponse
// @Router /api/v1/templates [get]
func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListTemplates(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, size := pagination(r)
	start, end := pageBounds(page, size, len(items))
	out := make([]types.TemplateSummary, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, types.NewTemplateSummary(&items[i]))
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    out,
		Meta:    &types.Meta{Page: page, PageSize: size, Total: int64(len(items))},
	})
}

// Get godoc
// @Summary Get a template
// @Description Returns the template with its controls. The ETag header carries the revision used by If-Match on update.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template id"
// @Success 200 {object} types.APIResponse{data=types.TemplateResponse}
// @Success 304
// @Failure 404 {object} types.APIResponse
// @Router /api/v1/templates/{id} [get]
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTemplate(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	etag := t.Revision()
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.NewTemplateResponse(t)})
}

// Create godoc
// @Summary Create a template
// @Description Validates and stores a template with its controls. Control ids are reassigned; parent references are rewritten to match.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.TemplateRequest true "Template"
// @Success 201 {object} types.APIResponse{data=types.TemplateResponse}
// @Failure 400 {object} types.APIResponse
// @Failure 409 {object} types.APIResponse
// @Router /api/v1/templates [post]
func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	var req types.TemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTemplate(r.Context(), tenant, &services.TemplateInput{
		Name:           req.Name,
		Description:    req.Description,
		Version:        req.Version,
		BaseTemplateID: req.BaseTemplateID,
		Controls:       req.ToModels(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/templates/"+t.ID.String())
	w.Header().Set("ETag", t.Revision())
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: types.NewTemplateResponse(t)})
}

// Update godoc
// @Summary Update a template
// @Description Replaces the template's fields and reconciles its controls. Send If-Match with the ETag from a previous read to reject concurrent edits.
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template id"
// @Param If-Match header string false "Revision the update is based on"
// @Param request body types.TemplateRequest true "Template"
// @Success 200 {object} types.APIResponse{data=types.TemplateResponse}
// @Failure 400 {object} types.APIResponse
// @Failure 404 {object} types.APIResponse
// @Failure 409 {object} types.APIResponse
// @Failure 412 {object} types.APIResponse
// @Router /api/v1/templates/{id} [put]
func (h *TemplatesHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req types.TemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTemplate(r.Context(), tenant, id, &services.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		Controls:    req.ToModels(),
	}, expectedRevision(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", t.Revision())
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: types.NewTemplateResponse(t)})
}

// expectedRevision reads If-Match. An absent header or "*" skips the check.
func expectedRevision(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return ""
	}
	return strings.TrimPrefix(v, "W/")
}

// Delete godoc
// @Summary Delete a template
// @Tags Templates
// @Security BearerAuth
// @Param id path string true "Template id"
// @Success 204
// @Failure 404 {object} types.APIResponse
// @Router /api/v1/templates/{id} [delete]
func (h *TemplatesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTemplate(r.Context(), tenant, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate godoc
// @Summary Duplicate a template
// @Description Copies the template and its control tree into a new version 1 template named "<name> (Copy)".
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template id"
// @Success 201 {object} types.APIResponse{data=types.TemplateResponse}
// @Failure 404 {object} types.APIResponse
// @Failure 409 {object} types.APIResponse
// @Router /api/v1/templates/{id}/duplicate [post]
func (h *TemplatesHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.DuplicateTemplate(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/templates/"+t.ID.String())
	w.Header().Set("ETag", t.Revision())
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: types.NewTemplateResponse(t)})
}

// Versions godoc
// @Summary List template versions
// @Tags Templates
// @Security BearerAuth
// @Param id path string true "Template id"
// @Failure 501 {object} types.APIResponse
// @Router /api/v1/templates/{id}/versions [get]
func (h *TemplatesHandler) Versions(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	versions, err := h.svc.ListTemplateVersions(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]types.TemplateSummary, len(versions))
	for i := range versions {
		out[i] = types.NewTemplateSummary(&versions[i])
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}

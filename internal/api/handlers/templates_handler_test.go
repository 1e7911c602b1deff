package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/formr/engine/internal/api/types"
	"github.com/formr/engine/internal/models"
	"github.com/formr/engine/internal/services"
	appErr "github.com/formr/engine/pkg/errors"
)

func sampleTemplate(tenant uuid.UUID) *models.FormTemplate {
	id := uuid.New()
	return &models.FormTemplate{
		ID:           id,
		Name:         "Intake",
		Version:      2,
		TenantID:     tenant,
		CreatedDate:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ModifiedDate: time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC),
		Controls: []models.FormControl{{
			ID:         uuid.New(),
			TemplateID: id,
			Type:       models.ControlTextInput,
			Label:      "Name",
			Position:   models.Position{X: 1, Y: 2, Width: 200, Height: 40}.JSON(),
		}},
	}
}

func TestTemplatesList(t *testing.T) {
	tenant := uuid.New()
	svc := new(mockTemplateService)
	items := make([]models.FormTemplate, 25)
	for i := range items {
		items[i] = *sampleTemplate(tenant)
		items[i].Name = fmt.Sprintf("T%02d", i)
	}
	svc.On("ListTemplates", mock.Anything, tenant).Return(items, nil)
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)

	rr := do(t, h, http.MethodGet, "/templates?page=2&page_size=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	var got []types.TemplateSummary
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 10)
	assert.Equal(t, "T10", got[0].Name)
	assert.Equal(t, 1, got[0].ControlCount)
	assert.Equal(t, int64(25), env.Meta.Total)

	rr = do(t, h, http.MethodGet, "/templates?page=9", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Empty(t, got)
}

func TestTemplatesRequireTenant(t *testing.T) {
	h := newTestRouter(uuid.Nil, NewTemplatesHandler(new(mockTemplateService)), nil, nil)
	rr := do(t, h, http.MethodGet, "/templates", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTemplatesGet(t *testing.T) {
	tenant := uuid.New()
	tpl := sampleTemplate(tenant)
	svc := new(mockTemplateService)
	svc.On("GetTemplate", mock.Anything, tenant, tpl.ID).Return(tpl, nil)
	missing := uuid.New()
	svc.On("GetTemplate", mock.Anything, tenant, missing).Return(nil, appErr.New(appErr.CodeNotFound, "template not found"))
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)

	rr := do(t, h, http.MethodGet, "/templates/"+tpl.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tpl.Revision(), rr.Header().Get("ETag"))
	var got types.TemplateResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Equal(t, tpl.ID, got.ID)
	assert.Equal(t, tpl.Revision(), got.Revision)
	require.Len(t, got.Controls, 1)
	assert.JSONEq(t, `{"x":1,"y":2,"width":200,"height":40}`, string(got.Controls[0].Position))

	rr = do(t, h, http.MethodGet, "/templates/"+tpl.ID.String(), nil, "If-None-Match", tpl.Revision())
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/templates/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode(t, rr).Error.Code)

	rr = do(t, h, http.MethodGet, "/templates/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "id", decode(t, rr).Error.Fields[0].Field)
}

func TestTemplatesCreate(t *testing.T) {
	tenant := uuid.New()
	svc := new(mockTemplateService)
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)

	t.Run("created", func(t *testing.T) {
		created := sampleTemplate(tenant)
		parent := uuid.New()
		svc.On("CreateTemplate", mock.Anything, tenant, mock.MatchedBy(func(in *services.TemplateInput) bool {
			return in.Name == "Intake" && len(in.Controls) == 2 &&
				in.Controls[1].ParentControlID != nil && *in.Controls[1].ParentControlID == parent &&
				in.Controls[0].Properties == nil
		})).Return(created, nil).Once()

		body := fmt.Sprintf(`{
			"name": "Intake",
			"controls": [
				{"id": %q, "type": "Section", "label": "Group", "position": {"x":0,"y":0,"width":400,"height":200}, "properties": null},
				{"type": "TextInput", "label": "Name", "position": {"x":0,"y":0,"width":200,"height":40}, "parent_control_id": %q, "order": 1}
			]
		}`, parent, parent)
		rr := do(t, h, http.MethodPost, "/templates", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "/api/v1/templates/"+created.ID.String(), rr.Header().Get("Location"))
		assert.Equal(t, created.Revision(), rr.Header().Get("ETag"))
		assert.True(t, decode(t, rr).Success)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		svc.On("CreateTemplate", mock.Anything, tenant, mock.MatchedBy(func(in *services.TemplateInput) bool {
			return in.Name == ""
		})).Return(nil, appErr.Validation([]appErr.FieldError{{Field: "name", Message: "Template name is required"}})).Once()

		rr := do(t, h, http.MethodPost, "/templates", `{"name":"","controls":[]}`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := decode(t, rr)
		assert.Equal(t, "invalid", env.Error.Code)
		assert.Equal(t, []appErr.FieldError{{Field: "name", Message: "Template name is required"}}, env.Error.Fields)
		assert.NotEmpty(t, env.Meta.RequestID)
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/templates", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		rr = do(t, h, http.MethodPost, "/templates", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		svc.On("CreateTemplate", mock.Anything, tenant, mock.MatchedBy(func(in *services.TemplateInput) bool {
			return in.Name == "Taken"
		})).Return(nil, appErr.New(appErr.CodeConflict, "template already exists")).Once()
		rr := do(t, h, http.MethodPost, "/templates", `{"name":"Taken","controls":[]}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("internal details are hidden", func(t *testing.T) {
		svc.On("CreateTemplate", mock.Anything, tenant, mock.MatchedBy(func(in *services.TemplateInput) bool {
			return in.Name == "Boom"
		})).Return(nil, appErr.Wrap(errors.New("pq: connection refused"), appErr.CodeInternal, "create template failed")).Once()
		rr := do(t, h, http.MethodPost, "/templates", `{"name":"Boom","controls":[]}`)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection refused")
		assert.NotContains(t, rr.Body.String(), "create template failed")
	})
}

func TestTemplatesUpdate(t *testing.T) {
	tenant := uuid.New()
	tpl := sampleTemplate(tenant)
	svc := new(mockTemplateService)
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)
	path := "/templates/" + tpl.ID.String()

	svc.On("UpdateTemplate", mock.Anything, tenant, tpl.ID, mock.Anything, `"rev-1"`).Return(tpl, nil).Once()
	rr := do(t, h, http.MethodPut, path, `{"name":"Intake","version":2,"controls":[]}`, "If-Match", `"rev-1"`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tpl.Revision(), rr.Header().Get("ETag"))

	svc.On("UpdateTemplate", mock.Anything, tenant, tpl.ID, mock.Anything, "").Return(tpl, nil).Once()
	rr = do(t, h, http.MethodPut, path, `{"name":"Intake","version":2,"controls":[]}`, "If-Match", "*")
	require.Equal(t, http.StatusOK, rr.Code)

	svc.On("UpdateTemplate", mock.Anything, tenant, tpl.ID, mock.Anything, `"stale"`).
		Return(nil, appErr.New(appErr.CodePreconditionFailed, "template was modified by another request")).Once()
	rr = do(t, h, http.MethodPut, path, `{"name":"Intake","version":2,"controls":[]}`, "If-Match", `"stale"`)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Equal(t, "precondition_failed", decode(t, rr).Error.Code)

	svc.AssertExpectations(t)
}

func TestTemplatesDeleteAndDuplicate(t *testing.T) {
	tenant := uuid.New()
	tpl := sampleTemplate(tenant)
	svc := new(mockTemplateService)
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)

	svc.On("DeleteTemplate", mock.Anything, tenant, tpl.ID).Return(nil).Once()
	rr := do(t, h, http.MethodDelete, "/templates/"+tpl.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	svc.On("DeleteTemplate", mock.Anything, tenant, tpl.ID).Return(appErr.New(appErr.CodeNotFound, "template not found")).Once()
	rr = do(t, h, http.MethodDelete, "/templates/"+tpl.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	dup := sampleTemplate(tenant)
	dup.Name = "Intake (Copy)"
	svc.On("DuplicateTemplate", mock.Anything, tenant, tpl.ID).Return(dup, nil).Once()
	rr = do(t, h, http.MethodPost, "/templates/"+tpl.ID.String()+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var got types.TemplateResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Equal(t, "Intake (Copy)", got.Name)
}

func TestTemplatesVersionsNotImplemented(t *testing.T) {
	tenant, id := uuid.New(), uuid.New()
	svc := new(mockTemplateService)
	svc.On("ListTemplateVersions", mock.Anything, tenant, id).Return(nil, appErr.NotImplemented("list template versions"))
	h := newTestRouter(tenant, NewTemplatesHandler(svc), nil, nil)

	rr := do(t, h, http.MethodGet, "/templates/"+id.String()+"/versions", nil)
	require.Equal(t, http.StatusNotImplemented, rr.Code)
	env := decode(t, rr)
	assert.Equal(t, "not_implemented", env.Error.Code)
	assert.Equal(t, "list template versions is not implemented", env.Error.Message)
}

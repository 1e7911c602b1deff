package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formr/engine/internal/api/handlers"
	mw "github.com/formr/engine/internal/api/middleware"
	"github.com/formr/engine/internal/library"
	"github.com/formr/engine/internal/migrations"
	"github.com/formr/engine/internal/repository"
	"github.com/formr/engine/internal/services"
	"github.com/formr/engine/pkg/database"
	"github.com/formr/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

var testSecret = []byte("router-test-secret-0123")

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver: database.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, db))
	entries, err := library.Load()
	require.NoError(t, err)
	require.NoError(t, migrations.Seed(ctx, db, entries))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewRouter(Dependencies{
		Tenant:           mw.TenantOptions{Secret: testSecret},
		AllowedOrigins:   []string{"*"},
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		HealthHandler:    handlers.NewHealthHandler(sqlDB),
		TemplatesHandler: handlers.NewTemplatesHandler(services.NewTemplateService(repository.NewTemplateRepository(db))),
		ControlsHandler:  handlers.NewControlsHandler(services.NewControlLibraryService(repository.NewControlLibraryRepository(db))),
		InstancesHandler: handlers.NewInstancesHandler(services.NewInstanceService()),
	})
}

func bearer(t *testing.T, tenant uuid.UUID) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"tenant_id": tenant.String()}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + s
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c client) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", c.token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	var out map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func data(m map[string]any) map[string]any { return m["data"].(map[string]any) }

func TestTemplateLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)
	tenant := uuid.New()
	api := client{t: t, h: h, token: bearer(t, tenant)}

	rr, body := api.do(http.MethodPost, "/api/v1/controls/library/Section/instantiate", map[string]float64{"x": 0, "y": 0})
	require.Equal(t, http.StatusOK, rr.Code)
	section := data(body)
	rr, body = api.do(http.MethodPost, "/api/v1/controls/library/TextInput/instantiate", map[string]float64{"x": 10, "y": 40})
	require.Equal(t, http.StatusOK, rr.Code)
	field := data(body)
	field["parent_control_id"] = section["id"]
	field["order"] = 1

	rr, body = api.do(http.MethodPost, "/api/v1/templates", map[string]any{
		"name":     "Customer intake",
		"controls": []any{field, section},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := data(body)
	id := created["id"].(string)
	controls := created["controls"].([]any)
	require.Len(t, controls, 2)

	// stored ids are fresh, parent references follow them
	ids := map[string]bool{}
	for _, c := range controls {
		ids[c.(map[string]any)["id"].(string)] = true
	}
	assert.False(t, ids[section["id"].(string)])
	for _, c := range controls {
		if p, ok := c.(map[string]any)["parent_control_id"].(string); ok {
			assert.True(t, ids[p])
		}
	}

	rr, _ = api.do(http.MethodGet, "/api/v1/templates/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")

	update := map[string]any{"name": "Customer intake", "version": 2, "controls": []any{}}
	rr, _ = api.do(http.MethodPut, "/api/v1/templates/"+id, update, "If-Match", etag)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, body = api.do(http.MethodPut, "/api/v1/templates/"+id, update, "If-Match", etag)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Equal(t, "precondition_failed", body["error"].(map[string]any)["code"])

	rr, body = api.do(http.MethodPost, "/api/v1/templates/"+id+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Customer intake (Copy)", data(body)["name"])
	assert.EqualValues(t, 1, data(body)["version"])

	rr, body = api.do(http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, body["data"].([]any), 2)

	other := client{t: t, h: h, token: bearer(t, uuid.New())}
	rr, _ = other.do(http.MethodGet, "/api/v1/templates/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = api.do(http.MethodDelete, "/api/v1/templates/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr, _ = api.do(http.MethodGet, "/api/v1/templates/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterRejectsMissingToken(t *testing.T) {
	h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	// one API call so the request counter has a sample
	api := client{t: t, h: h, token: bearer(t, uuid.New())}
	rr, _ := api.do(http.MethodGet, "/api/v1/controls/library", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "formr_api_requests_total"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

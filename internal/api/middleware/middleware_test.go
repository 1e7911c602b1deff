package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formr/engine/internal/api/types"
	"github.com/formr/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

var secret = []byte("0123456789abcdef0123")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

// echoTenant writes the resolved tenant id as the body.
var echoTenant = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetTenantID(r.Context()).String()))
})

func TestTenant(t *testing.T) {
	tenant := uuid.New()
	h := Tenant(TenantOptions{Secret: secret, Issuer: "formr", Audience: "designer"})(echoTenant)

	valid := jwt.MapClaims{
		"tenant_id": tenant.String(),
		"iss":       "formr",
		"aud":       "designer",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + sign(t, jwt.SigningMethodHS256, secret, valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("another-secret-value"), valid), http.StatusUnauthorized},
		{"wrong algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, secret, valid), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
			"tenant_id": tenant.String(), "iss": "formr", "aud": "designer", "exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
			"tenant_id": tenant.String(), "iss": "other", "aud": "designer",
		}), http.StatusUnauthorized},
		{"missing tenant", "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
			"iss": "formr", "aud": "designer",
		}), http.StatusUnauthorized},
		{"malformed tenant", "Bearer " + sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
			"tenant_id": "acme", "iss": "formr", "aud": "designer",
		}), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tenant.String(), rr.Body.String())
				return
			}
			var resp types.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "unauthorized", resp.Error.Code)
		})
	}
}

func TestTenantHeaderWithoutSecret(t *testing.T) {
	tenant := uuid.New()
	h := Tenant(TenantOptions{})(echoTenant)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, tenant.String())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, tenant.String(), rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rr.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "internal", resp.Error.Code)
	assert.NotEmpty(t, resp.Meta.RequestID)
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	h := CORS([]string{"https://designer.example.com"})(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://designer.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "https://designer.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	rr = httptest.NewRecorder()
	CORS([]string{"*"})(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, do("192.0.2.1"))
	assert.Equal(t, http.StatusOK, do("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("192.0.2.1"))
	assert.Equal(t, http.StatusOK, do("192.0.2.2"))
}

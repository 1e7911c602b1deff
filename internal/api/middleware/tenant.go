package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/logger"
)

type tenantKeyType string

const TenantIDKey tenantKeyType = "tenant_id"

// TenantHeader carries the tenant when no signing secret is configured.
const TenantHeader = "X-Tenant-ID"

type TenantOptions struct {
	// Secret is the HS256 key. When empty the tenant is read from
	// TenantHeader instead; only non-production configs allow that.
	Secret   []byte
	Issuer   string
	Audience string
}

type tenantClaims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Tenant resolves the calling tenant from a Bearer JWT and stores its id in
// the request context. Requests without a valid tenant get 401.
func Tenant(opts TenantOptions) func(http.Handler) http.Handler {
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw string
			if len(opts.Secret) == 0 {
				raw = r.Header.Get(TenantHeader)
			} else {
				var err error
				raw, err = tenantFromToken(parser, opts.Secret, r.Header.Get("Authorization"))
				if err != nil {
					logger.L().Debug("tenant token rejected", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
					reject(w, r, http.StatusUnauthorized, appErr.CodeUnauthorized, "missing or invalid credentials")
					return
				}
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil || tenantID == uuid.Nil {
				reject(w, r, http.StatusUnauthorized, appErr.CodeUnauthorized, "missing or invalid tenant")
				return
			}
			ctx := WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tenantFromToken(parser *jwt.Parser, secret []byte, header string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", jwt.ErrTokenMalformed
	}
	tokenStr := strings.TrimSpace(header[len("Bearer "):])
	var claims tenantClaims
	_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	return claims.TenantID, nil
}

// WithTenantID returns a copy of ctx carrying tenantID.
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID returns the tenant resolved for the request, or uuid.Nil.
func GetTenantID(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(TenantIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

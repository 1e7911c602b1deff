package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("SHUTDOWN_TIMEOUT", "1s")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:formr_test?mode=memory")
	t.Setenv("GOMAXPROCS", "0")
}

func TestLoadBindsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://designer.formr.dev")
	t.Setenv("JWT_ISSUER", "https://id.formr.dev")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, time.Second, c.ShutdownTimeout)
	assert.Equal(t, 2.5, c.RateLimitRPS)
	assert.Equal(t, 4, c.RateLimitBurst)
	assert.Equal(t, 25, c.DBMaxOpenConns)
	assert.Equal(t, "https://id.formr.dev", c.JWTIssuer)
	assert.Equal(t, []string{"http://localhost:5173", "https://designer.formr.dev"}, c.AllowedOrigins())
	assert.Same(t, c, Get())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBDriver")
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	_, err = Load()
	require.NoError(t, err)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/formr/engine/internal/api"
	"github.com/formr/engine/internal/api/handlers"
	mw "github.com/formr/engine/internal/api/middleware"
	"github.com/formr/engine/internal/repository"
	"github.com/formr/engine/internal/services"
	"github.com/formr/engine/pkg/config"
	"github.com/formr/engine/pkg/database"
	"github.com/formr/engine/pkg/logger"
)

// @title           FormR Engine API
// @version         1.0
// @description     Form template designer backend: control library, template storage and validation.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description HS256 JWT carrying a tenant_id claim, as "Bearer <token>".

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting FormR Engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DBDriver),
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Verbose:      cfg.LogLevel == "debug",
		Logger:       log,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to access database pool", zap.Error(err))
	}
	defer sqlDB.Close()
	log.Info("Database connected successfully")

	templateRepo := repository.NewTemplateRepository(db)
	libraryRepo := repository.NewControlLibraryRepository(db)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, tenant is taken from the " + mw.TenantHeader + " header (development only)")
	}

	router := api.NewRouter(api.Dependencies{
		Tenant: mw.TenantOptions{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		AllowedOrigins:   cfg.AllowedOrigins(),
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		DocsEnabled:      cfg.DocsEnabled,
		HealthHandler:    handlers.NewHealthHandler(sqlDB),
		TemplatesHandler: handlers.NewTemplatesHandler(services.NewTemplateService(templateRepo)),
		ControlsHandler:  handlers.NewControlsHandler(services.NewControlLibraryService(libraryRepo)),
		InstancesHandler: handlers.NewInstancesHandler(services.NewInstanceService()),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}

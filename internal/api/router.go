package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/formr/engine/docs"
	"github.com/formr/engine/internal/api/handlers"
	mw "github.com/formr/engine/internal/api/middleware"
)

type Dependencies struct {
	Tenant         mw.TenantOptions
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	DocsEnabled    bool

	HealthHandler    *handlers.HealthHandler
	TemplatesHandler *handlers.TemplatesHandler
	ControlsHandler  *handlers.ControlsHandler
	InstancesHandler *handlers.InstancesHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(dep.AllowedOrigins))
	r.Use(chimid.Compress(5))

	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	if dep.DocsEnabled {
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
		api.Use(mw.Tenant(dep.Tenant))

		api.Route("/controls/library", func(cr chi.Router) {
			cr.Get("/", dep.ControlsHandler.Library)
			cr.Post("/{type}/instantiate", dep.ControlsHandler.Instantiate)
		})

		api.Route("/templates", func(tr chi.Router) {
			tr.Get("/", dep.TemplatesHandler.List)
			tr.Post("/", dep.TemplatesHandler.Create)
			tr.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", dep.TemplatesHandler.Get)
				ir.Put("/", dep.TemplatesHandler.Update)
				ir.Delete("/", dep.TemplatesHandler.Delete)
				ir.Post("/duplicate", dep.TemplatesHandler.Duplicate)
				ir.Get("/versions", dep.TemplatesHandler.Versions)
				ir.Get("/instances", dep.InstancesHandler.ListForTemplate)
				ir.Post("/instances", dep.InstancesHandler.Create)
			})
		})

		api.Route("/instances/{id}", func(ir chi.Router) {
			ir.Get("/", dep.InstancesHandler.Get)
			ir.Put("/", dep.InstancesHandler.Update)
		})
	})

	return r
}

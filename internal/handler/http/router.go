package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/catalog/internal/idempotency"
	"github.com/utafrali/EcommerceGo/catalog/pkg/health"
	"github.com/utafrali/EcommerceGo/catalog/pkg/middleware"
)

// RouterConfig carries the dependencies of the HTTP API.
type RouterConfig struct {
	Products    ProductService
	Health      *health.Handler
	Idempotency idempotency.Store
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Limits      Limits
	// Media serves uploaded images under /media when blobs are kept in
	// process. Nil disables the route.
	Media       http.Handler
	TracerName  string
	Logger      *slog.Logger
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Tracing(cfg.TracerName))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.Media != nil {
		r.Get("/media/*", http.StripPrefix("/media", cfg.Media).ServeHTTP)
	}

	products := NewProductHandler(cfg.Products, cfg.Limits, cfg.Logger)
	limit := LimitBody(cfg.Limits.MaxRequestBytes)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		create := r.With(limit)
		if cfg.Idempotency != nil {
			create = create.With(idempotency.Middleware(cfg.Idempotency, cfg.Logger))
		}
		create.Post("/", products.CreateProduct)

		r.Get("/", products.ListProducts)

		r.Get("/{id}", products.GetProduct)
		r.With(limit).Patch("/{id}", products.UpdateProduct)
		r.Delete("/{id}", products.DeleteProduct)
	})

	return r
}

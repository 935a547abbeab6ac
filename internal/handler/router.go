package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/kdduha/property-inspector/backend/internal/config"
	"github.com/kdduha/property-inspector/backend/internal/logger"
	"github.com/kdduha/property-inspector/backend/internal/metrics"
)

func NewRouter(cfg config.ServerConfig, log *logrus.Logger, a *AnalyzeHandler) http.Handler {
	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		logger.Middleware(log),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           int((12 * time.Hour).Seconds()),
		}),
		metrics.Middleware,
	}...)

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Throttle(cfg.ThrottleLimit),
			middleware.Timeout(cfg.Timeout),
		)
		r.Post("/analyze", a.Analyze)
		r.Post("/analyze/stream", a.AnalyzeStream)
	})

	r.Get("/test", a.Test)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	spa := NewSPAHandler(cfg.StaticDir)
	r.Get("/*", spa.ServeHTTP)

	return r
}

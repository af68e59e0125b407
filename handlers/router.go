package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig wires the handlers into one router
type RouterConfig struct {
	Lines          *LineHandler
	Stations       *StationHandler
	Health         *HealthHandler
	Metrics        http.Handler // served on /metrics when set
	AllowedOrigins []string
	StaticDir      string
	Logger         *slog.Logger
}

// NewRouter builds the API routes
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", cfg.Health.Health)
	r.Get("/healthz", cfg.Health.Healthz)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/stations", cfg.Stations.CreateStation)
		r.Get("/stations", cfg.Stations.ListStations)
		r.Get("/stations/{stationId}", cfg.Stations.GetStation)

		r.Post("/lines", cfg.Lines.CreateLine)
		r.Get("/lines", cfg.Lines.ListLines)
		r.Get("/lines/{lineId}", cfg.Lines.GetLine)
		r.Delete("/lines/{lineId}", cfg.Lines.DeleteLine)
		r.Post("/lines/{lineId}/segments", cfg.Lines.AddSegment)
		r.Delete("/lines/{lineId}/stations/{stationName}", cfg.Lines.DeleteStation)
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/booking-page-studio/internal/http/middleware"
	"github.com/wolfman30/booking-page-studio/internal/studio"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Studio             *studio.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// RateLimiter throttles mutations per client IP. Its owner runs eviction. Nil disables limiting.
	RateLimiter *httpmiddleware.RateLimiter

	// Ready reports dependency health for /ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", ready(cfg.Ready))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.Studio == nil {
		return r
	}

	var mutations func(http.Handler) http.Handler
	if cfg.RateLimiter != nil {
		mutations = limitMutations(cfg.RateLimiter.Middleware)
	}

	editor := r.With(requireBusinessID)
	if mutations != nil {
		editor = editor.With(mutations)
	}
	editor.Mount("/booking-page", cfg.Studio.Routes())

	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/businesses/{businessID}", func(b chi.Router) {
				b.Use(businessFromURL)
				b.Mount("/booking-page", cfg.Studio.Routes())
			})
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func ready(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

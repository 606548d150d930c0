package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/franklinsmiles/webchat/internal/http/middleware"
	"github.com/franklinsmiles/webchat/internal/webchat"
	"github.com/franklinsmiles/webchat/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Chat               *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Chat.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// The embeddable widget script, cache-friendly and cross-origin.
	r.Get("/widget.js", cfg.Chat.HandleWidgetJS)

	r.Route("/chat", func(r chi.Router) {
		r.Use(httpmiddleware.RateLimit(2, 10))
		r.Get("/ws", cfg.Chat.HandleWebSocket)
		r.Post("/message", cfg.Chat.HandleMessage)
		r.Post("/button", cfg.Chat.HandleButton)
		r.Get("/history", cfg.Chat.HandleHistory)
		r.Post("/reset", cfg.Chat.HandleReset)
	})

	return r
}

package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/franklinsmiles/webchat/internal/api/router"
	"github.com/franklinsmiles/webchat/internal/chat"
	appconfig "github.com/franklinsmiles/webchat/internal/config"
	"github.com/franklinsmiles/webchat/internal/observability/metrics"
	"github.com/franklinsmiles/webchat/internal/webchat"
	"github.com/franklinsmiles/webchat/pkg/logging"
	"github.com/franklinsmiles/webchat/web"
)

const sessionIdleLimit = 2 * time.Hour

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting webchat API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// The assistant credential is the one thing we refuse to run without.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	llm, err := chat.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = llm.Close() }()

	// Session persistence is best-effort: if Redis is unreachable the
	// widget still works, it just forgets conversations on reload.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	registry := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)

	assistant := chat.NewAssistant(llm, logger, chatMetrics)
	sessionStore := chat.NewSessionStore(redisClient, logger)

	chatHandler := webchat.NewHandler(chat.SessionConfig{
		Assistant:  assistant,
		Store:      sessionStore,
		Logger:     logger,
		Metrics:    chatMetrics,
		BookingURL: cfg.BookingURL,
		FactsURL:   cfg.FactsURL,
		Pacing:     cfg.ReplyPacing,
	}, web.WidgetJS, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               chatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Drop idle in-memory sessions; they restore from Redis on reconnect.
	pruneDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := chatHandler.Prune(sessionIdleLimit); n > 0 {
					logger.Info("pruned idle sessions", "count", n)
				}
			case <-pruneDone:
				return
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(pruneDone)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

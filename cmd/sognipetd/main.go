// Package main implements the SogniPet API server: generate a pet image
// from a prompt, pin it to IPFS, and mint it on Base Sepolia.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "github.com/JacLaoky/SogniPet-miniapp/internal/app"
	"github.com/JacLaoky/SogniPet-miniapp/internal/app/httpapi"
	"github.com/JacLaoky/SogniPet-miniapp/internal/app/metrics"
	"github.com/JacLaoky/SogniPet-miniapp/internal/config"
	"github.com/JacLaoky/SogniPet-miniapp/internal/middleware"
	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides LISTEN_ADDR)")
	corsOrigins := flag.String("cors-origins", "*", "comma-separated allowed CORS origins")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("sognipetd").Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).WithField("component", "sognipetd")

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}
	defer application.Close()

	handler := httpapi.NewHandler(application)

	limiter := middleware.NewRateLimiter(float64(cfg.Server.RateLimitRPS), cfg.Server.RateBurst, log, "/generate", "/mint")
	limiter.StartCleanup(10 * time.Minute)

	chain := metrics.InstrumentHandler(
		middleware.NewCORSMiddleware(splitOrigins(*corsOrigins)).Handler(
			middleware.NewTracingMiddleware(log).Handler(
				limiter.Handler(handler))))

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantrisk/internal/api"
	"quantrisk/internal/config"
	"quantrisk/internal/logger"
)

var version = "dev"

func main() {
	port := flag.Int("port", 13380, "HTTP server port")
	host := flag.String("host", "127.0.0.1", "Host to bind to (use 0.0.0.0 to allow LAN/remote access)")
	workers := flag.Int("workers", 0, "Max scenario workers (0 = GOMAXPROCS)")
	flag.Parse()

	logger.Banner(version)

	cfg := config.Default()
	if *workers > 0 {
		cfg.MaxWorkers = *workers
	}

	logger.Section("Engine")
	logger.Stats("max workers", cfg.MaxWorkers)
	logger.Stats("default scenarios", cfg.DefaultScenarios)
	logger.Stats("request timeout (s)", cfg.RequestTimeoutSeconds)

	srv := api.NewServer(cfg)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	logger.Server(addr)

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	// Graceful shutdown on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Server", "Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server", fmt.Sprintf("Shutdown error: %v", err))
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
	logger.Info("Server", "Stopped")
}

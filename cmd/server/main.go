// Command server runs the in-memory WealthTracker sandbox API so the
// client can be tried without a real backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/wealthtracker/internal/sandbox"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	fillAfter := 10 * time.Second
	if v := os.Getenv("SANDBOX_FILL_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid SANDBOX_FILL_AFTER", "value", v, "err", err)
			os.Exit(1)
		}
		fillAfter = d
	}
	var origins []string
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	backend := sandbox.NewBackend(sandbox.Options{
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: origins,
		Logger:         logger,
	})
	if path := os.Getenv("SANDBOX_SCANNER_FILE"); path != "" {
		if err := loadScannerRows(backend, path); err != nil {
			logger.Error("failed to load scanner rows", "err", err)
			os.Exit(1)
		}
		logger.Info("scanner rows loaded", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go backend.Run(ctx)
	go fillOrders(ctx, backend, fillAfter, logger)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      backend.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("sandbox starting", "port", port, "fill_after", fillAfter.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
}

// fillOrders periodically fills resting orders older than age. A zero age
// leaves orders open until cancelled.
func fillOrders(ctx context.Context, b *sandbox.Backend, age time.Duration, logger *slog.Logger) {
	if age <= 0 {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.FillDue(age); n > 0 {
				logger.Info("filled resting orders", "count", n)
			}
		}
	}
}

// loadScannerRows reads a JSON object of scanner id to result rows.
func loadScannerRows(b *sandbox.Backend, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var rows map[string][]map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for id, r := range rows {
		b.SetScannerRows(id, r)
	}
	return nil
}

// @title           UI to SQL API
// @version         1.0.0
// @description     Accepts a UI screenshot, derives a database schema from it and executes the generated SQL. Progress is published over server-sent events.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ui2sql-backend/internal/app"
	"ui2sql-backend/internal/config"
	"ui2sql-backend/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, logger).Serve(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

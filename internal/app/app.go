// Package app assembles the workflow, upload and HTTP layers from a Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"ui2sql-backend/internal/config"
	"ui2sql-backend/internal/events"
	"ui2sql-backend/internal/handlers"
	"ui2sql-backend/internal/logging"
	"ui2sql-backend/internal/mockapi"
	"ui2sql-backend/internal/services"
	"ui2sql-backend/internal/upload"
	"ui2sql-backend/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Hub          *events.Hub
	Acceptor     *upload.Acceptor
	Orchestrator *workflow.Orchestrator
	Router       *gin.Engine
}

// New wires the mock backend behind the timeout boundary and hands it to a
// fresh orchestrator. Extra options are applied after the defaults.
func New(cfg *config.Config, logger *slog.Logger, opts ...workflow.Option) *App {
	if logger == nil {
		logger = logging.Discard()
	}

	client := mockapi.NewClient(mockapi.Options{
		AnalysisDelay:   cfg.AnalysisDelay,
		GenerationDelay: cfg.GenerationDelay,
		ExecutionDelay:  cfg.ExecutionDelay,
		FailStage:       cfg.MockFailStage,
	})
	backend := services.WithTimeout(client, cfg.ServiceTimeout)

	hub := events.NewHub(logger)
	orchestratorOpts := append([]workflow.Option{
		workflow.WithNotifier(hub),
		workflow.WithObserver(hub),
		workflow.WithLogger(logger),
	}, opts...)
	orch := workflow.New(backend, orchestratorOpts...)

	acceptor := upload.NewAcceptor(cfg.MaxUploadBytes, upload.NewPreviewStore(""))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Acceptor:     acceptor,
		Orchestrator: orch,
		Hub:          hub,
		Logger:       logger,
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		Hub:          hub,
		Acceptor:     acceptor,
		Orchestrator: orch,
		Router:       router,
	}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down and
// stops any in-flight workflow calls.
func (a *App) Serve(ctx context.Context) error {
	addr := ":" + a.Config.Port
	a.Logger.Info("server starting", "addr", addr, "environment", a.Config.Environment)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: a.Router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.Logger.Info("shutting down server")
		err := srv.Shutdown(shutdownCtx)
		a.Orchestrator.Close()
		return err
	})

	return eg.Wait()
}

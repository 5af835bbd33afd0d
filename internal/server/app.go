// Package server wires the configuration, the database, the drivers and the
// services together and runs the HTTP API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/drivers/storage"
	"github.com/bloomlabs/bloom/internal/server/httpapi"
	"github.com/bloomlabs/bloom/internal/server/repositories/repomanager"
	"github.com/bloomlabs/bloom/internal/server/services"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler *httpapi.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("server: pinging database: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("server: running migrations: %w", err)
	}

	st, err := storage.NewS3Storage(ctx, cfg.S3AccessKeyID, cfg.S3SecretAccessKey,
		cfg.S3Region, cfg.S3BaseEndpoint, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("server: initializing storage: %w", err)
	}

	q := queue.NewPostgresQueue(db)

	userService, err := services.NewUserService(db, repos, cfg, logger, q, st)
	if err != nil {
		return nil, fmt.Errorf("server: initializing user service: %w", err)
	}
	namespaceService := services.NewNamespaceService(repos)
	groupService := services.NewGroupService(db, repos, cfg, logger, q, namespaceService)

	handler := httpapi.NewHandler(userService, groupService, namespaceService, db, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		handler: handler,
	}, nil
}

// Run serves the API until ctx is cancelled or a termination signal arrives,
// then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	server := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", app.config.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: serving http: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutting down: %w", err)
	}

	return app.db.Close()
}

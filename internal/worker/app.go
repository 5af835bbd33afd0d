package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/mailer"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/drivers/storage"
	"github.com/bloomlabs/bloom/internal/server/repositories/repomanager"
	"github.com/bloomlabs/bloom/internal/server/services"
)

// App wires the worker against the same database and drivers as the server.
// Migrations are left to the server binary; the worker assumes the schema is
// in place.
type App struct {
	db     *sql.DB
	worker *Worker
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("worker: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("worker: pinging database: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()

	st, err := storage.NewS3Storage(ctx, cfg.S3AccessKeyID, cfg.S3SecretAccessKey,
		cfg.S3Region, cfg.S3BaseEndpoint, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("worker: initializing storage: %w", err)
	}

	q := queue.NewPostgresQueue(db)

	m, err := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if err != nil {
		return nil, fmt.Errorf("worker: initializing mailer: %w", err)
	}

	userService, err := services.NewUserService(db, repos, cfg, logger, q, st)
	if err != nil {
		return nil, fmt.Errorf("worker: initializing user service: %w", err)
	}

	return &App{
		db:     db,
		worker: NewWorker(cfg, logger, q, m, userService),
	}, nil
}

// Run executes the worker loop until a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := app.worker.Run(ctx); err != nil {
		return err
	}
	return app.db.Close()
}

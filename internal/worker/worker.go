// Package worker runs the background job loop: it pulls queued messages,
// delivers the emails they describe and periodically purges expired pending
// records.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/mailer"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/services"
)

const (
	pullBatchSize = 10
	pollInterval  = time.Second

	// Pending records live for about half an hour, so hourly cleanup keeps
	// the tables small without mattering for correctness.
	cleanupInterval = time.Hour

	// A job that failed this many times is dropped instead of retried.
	maxJobAttempts = 5
)

// DataCleaner is the slice of the user service the worker calls on its
// cleanup schedule.
type DataCleaner interface {
	DeleteOldData(ctx context.Context) error
}

type Worker struct {
	config *config.Config
	logger logging.Logger
	queue  queue.Queue
	mailer mailer.Mailer
	users  DataCleaner
}

func NewWorker(cfg *config.Config, logger logging.Logger, q queue.Queue,
	m mailer.Mailer, users DataCleaner) *Worker {
	return &Worker{
		config: cfg,
		logger: logger,
		queue:  q,
		mailer: m,
		users:  users,
	}
}

// Run polls the queue until ctx is cancelled. Cleanup runs once at startup
// and then on its own ticker; a delete_old_data message on the queue triggers
// it as well, so operators can force a purge by pushing one.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "worker started")

	if err := w.users.DeleteOldData(ctx); err != nil {
		w.logger.Error(ctx, "worker: deleting old data", "error", err)
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "worker stopped")
			return nil
		case <-cleanup.C:
			if err := w.users.DeleteOldData(ctx); err != nil {
				w.logger.Error(ctx, "worker: deleting old data", "error", err)
			}
		case <-poll.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch claims due jobs and settles each one: delete on success, fail
// for a later retry, drop after too many failures.
func (w *Worker) processBatch(ctx context.Context) {
	jobs, err := w.queue.Pull(ctx, pullBatchSize)
	if err != nil {
		w.logger.Error(ctx, "worker: pulling jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if err := w.handleJob(ctx, job); err != nil {
			if job.FailedAttempts+1 >= maxJobAttempts {
				w.logger.Error(ctx, "worker: dropping job",
					"job_id", job.ID, "type", string(job.Message.Type), "error", err)
				if err := w.queue.DeleteJob(ctx, job.ID); err != nil {
					w.logger.Error(ctx, "worker: deleting job", "job_id", job.ID, "error", err)
				}
				continue
			}

			w.logger.Warn(ctx, "worker: job failed",
				"job_id", job.ID, "type", string(job.Message.Type), "error", err)
			if err := w.queue.FailJob(ctx, job); err != nil {
				w.logger.Error(ctx, "worker: releasing job", "job_id", job.ID, "error", err)
			}
			continue
		}

		if err := w.queue.DeleteJob(ctx, job.ID); err != nil {
			w.logger.Error(ctx, "worker: deleting job", "job_id", job.ID, "error", err)
		}
	}
}

func (w *Worker) handleJob(ctx context.Context, job queue.Job) error {
	switch job.Message.Type {
	case queue.MessageTypeRegistrationEmail:
		var data queue.RegistrationEmailData
		if err := json.Unmarshal(job.Message.Data, &data); err != nil {
			return fmt.Errorf("worker: decoding %s payload: %w", job.Message.Type, err)
		}
		return w.mailer.Send(ctx, services.RenderRegistrationEmail(w.config.SMTPFrom, data))

	case queue.MessageTypeSignInEmail:
		var data queue.SignInEmailData
		if err := json.Unmarshal(job.Message.Data, &data); err != nil {
			return fmt.Errorf("worker: decoding %s payload: %w", job.Message.Type, err)
		}
		return w.mailer.Send(ctx, services.RenderSignInEmail(w.config.SMTPFrom, data))

	case queue.MessageTypeGroupInvitationEmail:
		var data queue.GroupInvitationEmailData
		if err := json.Unmarshal(job.Message.Data, &data); err != nil {
			return fmt.Errorf("worker: decoding %s payload: %w", job.Message.Type, err)
		}
		return w.mailer.Send(ctx, services.RenderGroupInvitationEmail(w.config.SMTPFrom, w.config.BaseURL, data))

	case queue.MessageTypeEmailChangedEmail:
		var data queue.EmailChangedEmailData
		if err := json.Unmarshal(job.Message.Data, &data); err != nil {
			return fmt.Errorf("worker: decoding %s payload: %w", job.Message.Type, err)
		}
		return w.mailer.Send(ctx, services.RenderEmailChangedEmail(w.config.SMTPFrom, data))

	case queue.MessageTypeVerifyEmailEmail:
		var data queue.VerifyEmailEmailData
		if err := json.Unmarshal(job.Message.Data, &data); err != nil {
			return fmt.Errorf("worker: decoding %s payload: %w", job.Message.Type, err)
		}
		return w.mailer.Send(ctx, services.RenderVerifyEmailEmail(w.config.SMTPFrom, data))

	case queue.MessageTypeDeleteOldData:
		return w.users.DeleteOldData(ctx)

	default:
		return fmt.Errorf("worker: unknown message type %q", job.Message.Type)
	}
}

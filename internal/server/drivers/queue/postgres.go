package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bloomlabs/bloom/internal/dbx"
)

// Job statuses as stored in the status column.
const (
	statusQueued  = 0
	statusRunning = 1
)

// PostgresQueue stores jobs in the queue table and uses
// FOR UPDATE SKIP LOCKED so concurrent workers never claim the same job.
type PostgresQueue struct {
	db dbx.DBTX
}

func NewPostgresQueue(db dbx.DBTX) *PostgresQueue {
	return &PostgresQueue{db: db}
}

func (q *PostgresQueue) Push(ctx context.Context, message Message, scheduledFor *time.Time) error {
	now := time.Now().UTC()
	if scheduledFor == nil {
		scheduledFor = &now
	}

	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("queue: marshaling message: %w", err)
	}

	query := `INSERT INTO queue (created_at, updated_at, scheduled_for, failed_attempts, status, message)
		VALUES ($1, $2, $3, 0, $4, $5)`

	_, err = q.db.ExecContext(ctx, query, now, now, *scheduledFor, statusQueued, raw)
	if err != nil {
		return fmt.Errorf("queue: pushing job: %w", err)
	}

	return nil
}

func (q *PostgresQueue) Pull(ctx context.Context, numberOfJobs int64) ([]Job, error) {
	now := time.Now().UTC()

	query := `UPDATE queue SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM queue
			WHERE status = $3 AND scheduled_for <= $4
			ORDER BY scheduled_for
			FOR UPDATE SKIP LOCKED
			LIMIT $5
		)
		RETURNING id, failed_attempts, message`

	rows, err := q.db.QueryContext(ctx, query, statusRunning, now, statusQueued, now, numberOfJobs)
	if err != nil {
		return nil, fmt.Errorf("queue: pulling jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var job Job
		var raw []byte
		if err := rows.Scan(&job.ID, &job.FailedAttempts, &raw); err != nil {
			return nil, fmt.Errorf("queue: scanning job: %w", err)
		}
		if err := json.Unmarshal(raw, &job.Message); err != nil {
			return nil, fmt.Errorf("queue: unmarshaling message: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (q *PostgresQueue) DeleteJob(ctx context.Context, jobID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM queue WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("queue: deleting job: %w", err)
	}
	return nil
}

func (q *PostgresQueue) FailJob(ctx context.Context, job Job) error {
	query := `UPDATE queue SET status = $1, updated_at = $2, failed_attempts = failed_attempts + 1
		WHERE id = $3`

	_, err := q.db.ExecContext(ctx, query, statusQueued, time.Now().UTC(), job.ID)
	if err != nil {
		return fmt.Errorf("queue: failing job: %w", err)
	}
	return nil
}

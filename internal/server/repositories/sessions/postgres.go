package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (id, created_at, updated_at, secret_hash, user_id)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, session.ID, session.CreatedAt, session.UpdatedAt,
		session.SecretHash, session.UserID)
	if err != nil {
		return fmt.Errorf("sessions: creating session: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT id, created_at, updated_at, secret_hash, user_id FROM sessions WHERE id = $1`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &session.CreatedAt,
		&session.UpdatedAt, &session.SecretHash, &session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sessions: finding session: %w", err)
	}

	return session, nil
}

func (r *PostgresRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	query := `SELECT id, created_at, updated_at, secret_hash, user_id FROM sessions
		WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sessions: finding sessions for user: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var session models.Session
		err := rows.Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt,
			&session.SecretHash, &session.UserID)
		if err != nil {
			return nil, fmt.Errorf("sessions: scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessions: deleting session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("sessions: deleting sessions for user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error {
	query := `INSERT INTO pending_sessions (id, created_at, updated_at, code_hash, two_fa_verified, failed_attempts, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, pendingSession.ID, pendingSession.CreatedAt,
		pendingSession.UpdatedAt, pendingSession.CodeHash, pendingSession.TwoFaVerified,
		pendingSession.FailedAttempts, pendingSession.UserID)
	if err != nil {
		return fmt.Errorf("sessions: creating pending session: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindPendingSessionByID(ctx context.Context, id uuid.UUID) (*models.PendingSession, error) {
	query := `SELECT id, created_at, updated_at, code_hash, two_fa_verified, failed_attempts, user_id
		FROM pending_sessions WHERE id = $1`

	pendingSession := &models.PendingSession{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&pendingSession.ID, &pendingSession.CreatedAt,
		&pendingSession.UpdatedAt, &pendingSession.CodeHash, &pendingSession.TwoFaVerified,
		&pendingSession.FailedAttempts, &pendingSession.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sessions: finding pending session: %w", err)
	}

	return pendingSession, nil
}

func (r *PostgresRepository) UpdatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error {
	query := `UPDATE pending_sessions SET updated_at = $1, two_fa_verified = $2, failed_attempts = $3
		WHERE id = $4`

	_, err := r.db.ExecContext(ctx, query, pendingSession.UpdatedAt, pendingSession.TwoFaVerified,
		pendingSession.FailedAttempts, pendingSession.ID)
	if err != nil {
		return fmt.Errorf("sessions: updating pending session: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeletePendingSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessions: deleting pending session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePendingSessionsCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_sessions WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("sessions: deleting old pending sessions: %w", err)
	}
	return res.RowsAffected()
}

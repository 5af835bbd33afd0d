// Package sessions persists sessions and pending sign-in records.
package sessions

import (
	"context"
	"time"

	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error

	CreatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error
	FindPendingSessionByID(ctx context.Context, id uuid.UUID) (*models.PendingSession, error)
	UpdatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error
	DeletePendingSession(ctx context.Context, id uuid.UUID) error
	DeletePendingSessionsCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}

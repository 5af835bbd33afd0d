// Package users persists users and their pending registration / email
// change records.
package users

import (
	"context"
	"time"

	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error
	FindPendingUserByID(ctx context.Context, id uuid.UUID) (*models.PendingUser, error)
	UpdatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error
	DeletePendingUser(ctx context.Context, id uuid.UUID) error
	DeletePendingUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error)

	CreatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error
	FindPendingEmailByID(ctx context.Context, id uuid.UUID) (*models.PendingEmail, error)
	UpdatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error
	DeletePendingEmail(ctx context.Context, id uuid.UUID) error
	DeletePendingEmailsCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Package namespaces persists the tenancy boundary every other resource
// hangs off.
package namespaces

import (
	"context"

	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, namespace *models.Namespace) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Namespace, error)
	FindByPath(ctx context.Context, path string) (*models.Namespace, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

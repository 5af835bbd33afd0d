package services

import (
	"context"
	"errors"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// NamespaceService is the authorization contract every namespaced module
// calls before touching tenant data. It is stateless: callers pass the DBTX
// they are working on so the checks see uncommitted rows of the surrounding
// transaction.
type NamespaceService struct {
	repos repomanager.RepositoryManager
}

func NewNamespaceService(repos repomanager.RepositoryManager) *NamespaceService {
	return &NamespaceService{repos: repos}
}

// CheckNamespaceMembership authorizes user against a namespace: their own
// personal namespace passes without a query, anything else requires a group
// membership. A missing membership is indistinguishable from a missing
// namespace: both come back ErrPermissionDenied.
func (s *NamespaceService) CheckNamespaceMembership(ctx context.Context, db dbx.DBTX, user *models.User, namespaceID uuid.UUID) error {
	if user == nil {
		return common.ErrPermissionDenied
	}
	if user.NamespaceID == namespaceID {
		return nil
	}

	_, err := s.repos.Groups(db).FindMembershipForNamespace(ctx, user.ID, namespaceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrPermissionDenied
		}
		return err
	}
	return nil
}

// CheckNamespaceExists reports whether a path is taken.
func (s *NamespaceService) CheckNamespaceExists(ctx context.Context, db dbx.DBTX, path string) (bool, error) {
	_, err := s.repos.Namespaces(db).FindByPath(ctx, path)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindNamespaceByID loads a namespace for authorized callers.
func (s *NamespaceService) FindNamespaceByID(ctx context.Context, db dbx.DBTX, namespaceID uuid.UUID) (*models.Namespace, error) {
	namespace, err := s.repos.Namespaces(db).FindByID(ctx, namespaceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNamespaceNotFound
		}
		return nil, err
	}
	return namespace, nil
}

// Package groups persists groups, their memberships and invitations.
package groups

import (
	"context"

	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	FindByNamespaceID(ctx context.Context, namespaceID uuid.UUID) (*models.Group, error)
	FindForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateMembership(ctx context.Context, membership *models.GroupMembership) error
	FindMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMembership, error)
	FindMembershipForNamespace(ctx context.Context, userID, namespaceID uuid.UUID) (*models.GroupMembership, error)
	DeleteMembership(ctx context.Context, userID, groupID uuid.UUID) error
	DeleteMembershipsByGroupID(ctx context.Context, groupID uuid.UUID) error
	CountAdmins(ctx context.Context, groupID uuid.UUID) (int64, error)
	CountMembers(ctx context.Context, groupID uuid.UUID) (int64, error)
	FindMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error)

	CreateInvitation(ctx context.Context, invitation *models.GroupInvitation) error
	FindInvitationByID(ctx context.Context, id uuid.UUID) (*models.GroupInvitation, error)
	FindInvitationForInvitee(ctx context.Context, groupID, inviteeID uuid.UUID) (*models.GroupInvitation, error)
	FindInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.GroupInvitation, error)
	FindInvitationsForInvitee(ctx context.Context, inviteeID uuid.UUID) ([]models.GroupInvitation, error)
	DeleteInvitation(ctx context.Context, id uuid.UUID) error
	DeleteInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) error
}

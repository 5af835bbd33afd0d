package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type GroupService struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	config     *config.Config
	logger     logging.Logger
	queue      queue.Queue
	namespaces *NamespaceService
}

func NewGroupService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	logger logging.Logger, q queue.Queue, namespaces *NamespaceService) *GroupService {
	return &GroupService{
		db:         db,
		repos:      repos,
		config:     cfg,
		logger:     logger,
		queue:      q,
		namespaces: namespaces,
	}
}

// membersLimit is the cap of members plus outstanding invitations per plan.
// Pro is a soft limit, kept well above what any real group reaches.
func membersLimit(plan models.BillingPlan) int64 {
	switch plan {
	case models.BillingPlanStarter:
		return 5
	case models.BillingPlanPro:
		return 250
	default:
		return 2
	}
}

// checkGroupAdmin authorizes an admin-gated operation. Non-members get the
// same ErrPermissionDenied as plain members so group existence leaks nothing.
func (s *GroupService) checkGroupAdmin(ctx context.Context, db dbx.DBTX, userID, groupID uuid.UUID) error {
	membership, err := s.repos.Groups(db).FindMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrPermissionDenied
		}
		return err
	}
	if membership.Role != models.GroupRoleAdministrator {
		return common.ErrPermissionDenied
	}
	return nil
}

// CreateGroup creates the group, its namespace and the creator's
// administrator membership in one transaction.
func (s *GroupService) CreateGroup(ctx context.Context, actor Actor, name, path, description string) (*models.Group, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	path = normalizeUsername(path)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateNamespace(path); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	group := &models.Group{}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		taken, err := s.namespaces.CheckNamespaceExists(ctx, tx, path)
		if err != nil {
			return err
		}
		if taken {
			return common.ErrNamespaceAlreadyExists
		}

		now := time.Now().UTC()
		namespace := &models.Namespace{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
			Path:      path,
			Type:      models.NamespaceTypeGroup,
			Plan:      models.BillingPlanFree,
		}
		if err := s.repos.Namespaces(tx).Create(ctx, namespace); err != nil {
			return err
		}

		*group = models.Group{
			ID:          uuid.New(),
			CreatedAt:   now,
			UpdatedAt:   now,
			Name:        name,
			Description: description,
			Path:        path,
			NamespaceID: namespace.ID,
		}
		if err := s.repos.Groups(tx).Create(ctx, group); err != nil {
			return err
		}

		membership := &models.GroupMembership{
			JoinedAt: now,
			Role:     models.GroupRoleAdministrator,
			UserID:   user.ID,
			GroupID:  group.ID,
		}
		return s.repos.Groups(tx).CreateMembership(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// InvitePeopleInGroup invites users by username. Existing members and
// already-invited users are skipped; unknown usernames abort the whole call.
func (s *GroupService) InvitePeopleInGroup(ctx context.Context, actor Actor, groupID uuid.UUID, usernames []string) ([]models.GroupInvitation, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	groupsRepo := s.repos.Groups(s.db)

	group, err := groupsRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrGroupNotFound
		}
		return nil, err
	}
	if err := s.checkGroupAdmin(ctx, s.db, user.ID, group.ID); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	normalized := make([]string, 0, len(usernames))
	for _, username := range usernames {
		username = normalizeUsername(username)
		if _, dup := seen[username]; dup {
			continue
		}
		seen[username] = struct{}{}
		normalized = append(normalized, username)
	}

	invitees, err := s.repos.Users(s.db).FindByUsernames(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(invitees) != len(normalized) {
		return nil, common.ErrSomeUsersNotFound
	}

	// Skip anyone already in or already invited.
	toInvite := make([]models.User, 0, len(invitees))
	for _, invitee := range invitees {
		if _, err := groupsRepo.FindMembership(ctx, invitee.ID, group.ID); err == nil {
			continue
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if _, err := groupsRepo.FindInvitationForInvitee(ctx, group.ID, invitee.ID); err == nil {
			continue
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		toInvite = append(toInvite, invitee)
	}
	if len(toInvite) == 0 {
		return []models.GroupInvitation{}, nil
	}

	if !s.config.SelfHosted {
		namespace, err := s.repos.Namespaces(s.db).FindByID(ctx, group.NamespaceID)
		if err != nil {
			return nil, err
		}
		members, err := groupsRepo.CountMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		pending, err := groupsRepo.FindInvitationsByGroupID(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		if members+int64(len(pending))+int64(len(toInvite)) > membersLimit(namespace.Plan) {
			return nil, common.ErrMembersLimitReached
		}
	}

	invitations := make([]models.GroupInvitation, 0, len(toInvite))

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txGroups := s.repos.Groups(tx)
		now := time.Now().UTC()
		for _, invitee := range toInvite {
			invitation := models.GroupInvitation{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
				GroupID:   group.ID,
				InviterID: user.ID,
				InviteeID: invitee.ID,
			}
			if err := txGroups.CreateInvitation(ctx, &invitation); err != nil {
				return err
			}
			invitations = append(invitations, invitation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, invitee := range toInvite {
		s.pushEmailMessage(ctx, queue.MessageTypeGroupInvitationEmail, queue.GroupInvitationEmailData{
			Email:       invitee.Email,
			Name:        invitee.Name,
			GroupName:   group.Name,
			InviterName: user.Name,
		})
	}

	return invitations, nil
}

// AcceptGroupInvitation turns an invitation into a member role membership.
func (s *GroupService) AcceptGroupInvitation(ctx context.Context, actor Actor, invitationID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	invitation, err := s.findInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation.InviteeID != user.ID {
		return common.ErrPermissionDenied
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txGroups := s.repos.Groups(tx)
		membership := &models.GroupMembership{
			JoinedAt: time.Now().UTC(),
			Role:     models.GroupRoleMember,
			UserID:   user.ID,
			GroupID:  invitation.GroupID,
		}
		if err := txGroups.CreateMembership(ctx, membership); err != nil {
			return err
		}
		return txGroups.DeleteInvitation(ctx, invitation.ID)
	})
}

// DeclineGroupInvitation removes an invitation addressed to the caller.
func (s *GroupService) DeclineGroupInvitation(ctx context.Context, actor Actor, invitationID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	invitation, err := s.findInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation.InviteeID != user.ID {
		return common.ErrPermissionDenied
	}

	return s.repos.Groups(s.db).DeleteInvitation(ctx, invitation.ID)
}

// CancelGroupInvitation lets a group administrator withdraw an invitation.
func (s *GroupService) CancelGroupInvitation(ctx context.Context, actor Actor, invitationID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	invitation, err := s.findInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	if err := s.checkGroupAdmin(ctx, s.db, user.ID, invitation.GroupID); err != nil {
		return err
	}

	return s.repos.Groups(s.db).DeleteInvitation(ctx, invitation.ID)
}

func (s *GroupService) findInvitation(ctx context.Context, invitationID uuid.UUID) (*models.GroupInvitation, error) {
	invitation, err := s.repos.Groups(s.db).FindInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvitationNotFound
		}
		return nil, err
	}
	return invitation, nil
}

// QuitGroup removes the caller's own membership. The last administrator
// cannot leave: the admin count is re-read after the delete in the same
// serializable transaction, so two admins quitting at once cannot both slip
// through.
func (s *GroupService) QuitGroup(ctx context.Context, actor Actor, groupID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}
	return s.removeMembership(ctx, user.ID, groupID)
}

// RemoveMemberFromGroup lets an administrator remove a member by username.
func (s *GroupService) RemoveMemberFromGroup(ctx context.Context, actor Actor, groupID uuid.UUID, username string) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}
	if err := s.checkGroupAdmin(ctx, s.db, user.ID, groupID); err != nil {
		return err
	}

	member, err := s.repos.Users(s.db).FindByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUserNotFound
		}
		return err
	}

	return s.removeMembership(ctx, member.ID, groupID)
}

func (s *GroupService) removeMembership(ctx context.Context, userID, groupID uuid.UUID) error {
	return dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		txGroups := s.repos.Groups(tx)

		membership, err := txGroups.FindMembership(ctx, userID, groupID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrMemberNotFound
			}
			return err
		}

		if err := txGroups.DeleteMembership(ctx, membership.UserID, membership.GroupID); err != nil {
			return err
		}

		if membership.Role == models.GroupRoleAdministrator {
			admins, err := txGroups.CountAdmins(ctx, groupID)
			if err != nil {
				return err
			}
			if admins == 0 {
				return common.ErrAtLeastOneAdminMustRemainInGroup
			}
		}
		return nil
	})
}

// DeleteGroup removes the group with its memberships, invitations and
// namespace in one transaction. Administrators only.
func (s *GroupService) DeleteGroup(ctx context.Context, actor Actor, groupID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	group, err := s.repos.Groups(s.db).FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrGroupNotFound
		}
		return err
	}
	if err := s.checkGroupAdmin(ctx, s.db, user.ID, group.ID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txGroups := s.repos.Groups(tx)
		if err := txGroups.DeleteInvitationsByGroupID(ctx, group.ID); err != nil {
			return err
		}
		if err := txGroups.DeleteMembershipsByGroupID(ctx, group.ID); err != nil {
			return err
		}
		if err := txGroups.Delete(ctx, group.ID); err != nil {
			return err
		}
		return s.repos.Namespaces(tx).Delete(ctx, group.NamespaceID)
	})
}

// FindGroup returns a group the caller belongs to.
func (s *GroupService) FindGroup(ctx context.Context, actor Actor, groupID uuid.UUID) (*models.Group, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	group, err := s.repos.Groups(s.db).FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrGroupNotFound
		}
		return nil, err
	}
	if err := s.namespaces.CheckNamespaceMembership(ctx, s.db, user, group.NamespaceID); err != nil {
		return nil, err
	}
	return group, nil
}

// FindGroupMembers lists members of a group the caller belongs to.
func (s *GroupService) FindGroupMembers(ctx context.Context, actor Actor, groupID uuid.UUID) ([]models.GroupMember, error) {
	group, err := s.FindGroup(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}
	return s.repos.Groups(s.db).FindMembers(ctx, group.ID)
}

// FindMyGroups lists the groups the caller is a member of.
func (s *GroupService) FindMyGroups(ctx context.Context, actor Actor) ([]models.Group, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}
	return s.repos.Groups(s.db).FindForUser(ctx, user.ID)
}

// FindMyGroupInvitations lists invitations addressed to the caller.
func (s *GroupService) FindMyGroupInvitations(ctx context.Context, actor Actor) ([]models.GroupInvitation, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}
	return s.repos.Groups(s.db).FindInvitationsForInvitee(ctx, user.ID)
}

// pushEmailMessage queues an outbound email, best effort.
func (s *GroupService) pushEmailMessage(ctx context.Context, messageType queue.MessageType, data any) {
	message, err := queue.NewMessage(messageType, data)
	if err != nil {
		s.logger.Warn(ctx, "groups: building queue message", "type", string(messageType), "error", err)
		return
	}
	if err := s.queue.Push(ctx, message, nil); err != nil {
		s.logger.Warn(ctx, "groups: queueing email", "type", string(messageType), "error", err)
	}
}

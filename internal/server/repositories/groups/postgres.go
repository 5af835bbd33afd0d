package groups

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const groupColumns = `id, created_at, updated_at, name, description, avatar_id, path, namespace_id`

func scanGroup(row interface{ Scan(dest ...any) error }) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt,
		&group.Name, &group.Description, &group.AvatarID, &group.Path, &group.NamespaceID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *PostgresRepository) Create(ctx context.Context, group *models.Group) error {
	query := `INSERT INTO groups (id, created_at, updated_at, name, description, avatar_id, path, namespace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query, group.ID, group.CreatedAt, group.UpdatedAt,
		group.Name, group.Description, group.AvatarID, group.Path, group.NamespaceID)
	if err != nil {
		return fmt.Errorf("groups: creating group: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, group *models.Group) error {
	query := `UPDATE groups SET updated_at = $1, name = $2, description = $3, avatar_id = $4, path = $5
		WHERE id = $6`

	_, err := r.db.ExecContext(ctx, query, group.UpdatedAt, group.Name, group.Description,
		group.AvatarID, group.Path, group.ID)
	if err != nil {
		return fmt.Errorf("groups: updating group: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding group by id: %w", err)
	}

	return group, nil
}

func (r *PostgresRepository) FindByNamespaceID(ctx context.Context, namespaceID uuid.UUID) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE namespace_id = $1`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, namespaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding group by namespace: %w", err)
	}

	return group, nil
}

func (r *PostgresRepository) FindForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	query := `SELECT g.id, g.created_at, g.updated_at, g.name, g.description, g.avatar_id, g.path, g.namespace_id
		FROM groups g
		INNER JOIN group_memberships m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("groups: finding groups for user: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("groups: scanning group: %w", err)
		}
		groups = append(groups, *group)
	}

	return groups, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("groups: deleting group: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateMembership(ctx context.Context, membership *models.GroupMembership) error {
	query := `INSERT INTO group_memberships (joined_at, role, user_id, group_id)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, membership.JoinedAt, membership.Role,
		membership.UserID, membership.GroupID)
	if err != nil {
		return fmt.Errorf("groups: creating membership: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMembership, error) {
	query := `SELECT joined_at, role, user_id, group_id FROM group_memberships
		WHERE user_id = $1 AND group_id = $2`

	membership := &models.GroupMembership{}
	err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(&membership.JoinedAt,
		&membership.Role, &membership.UserID, &membership.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding membership: %w", err)
	}

	return membership, nil
}

func (r *PostgresRepository) FindMembershipForNamespace(ctx context.Context, userID, namespaceID uuid.UUID) (*models.GroupMembership, error) {
	query := `SELECT m.joined_at, m.role, m.user_id, m.group_id
		FROM group_memberships m
		INNER JOIN groups g ON g.id = m.group_id
		WHERE m.user_id = $1 AND g.namespace_id = $2`

	membership := &models.GroupMembership{}
	err := r.db.QueryRowContext(ctx, query, userID, namespaceID).Scan(&membership.JoinedAt,
		&membership.Role, &membership.UserID, &membership.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding membership for namespace: %w", err)
	}

	return membership, nil
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, userID, groupID uuid.UUID) error {
	query := `DELETE FROM group_memberships WHERE user_id = $1 AND group_id = $2`

	_, err := r.db.ExecContext(ctx, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("groups: deleting membership: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteMembershipsByGroupID(ctx context.Context, groupID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_memberships WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("groups: deleting memberships for group: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountAdmins(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM group_memberships WHERE group_id = $1 AND role = $2`

	var count int64
	err := r.db.QueryRowContext(ctx, query, groupID, models.GroupRoleAdministrator).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("groups: counting administrators: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CountMembers(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_memberships WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("groups: counting members: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) FindMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	query := `SELECT u.id, u.username, u.name, u.avatar_id, m.joined_at, m.role
		FROM group_memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("groups: finding members: %w", err)
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var member models.GroupMember
		err := rows.Scan(&member.UserID, &member.Username, &member.Name,
			&member.AvatarID, &member.JoinedAt, &member.Role)
		if err != nil {
			return nil, fmt.Errorf("groups: scanning member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

func (r *PostgresRepository) CreateInvitation(ctx context.Context, invitation *models.GroupInvitation) error {
	query := `INSERT INTO group_invitations (id, created_at, updated_at, group_id, inviter_id, invitee_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, invitation.ID, invitation.CreatedAt, invitation.UpdatedAt,
		invitation.GroupID, invitation.InviterID, invitation.InviteeID)
	if err != nil {
		return fmt.Errorf("groups: creating invitation: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindInvitationByID(ctx context.Context, id uuid.UUID) (*models.GroupInvitation, error) {
	query := `SELECT id, created_at, updated_at, group_id, inviter_id, invitee_id
		FROM group_invitations WHERE id = $1`

	invitation := &models.GroupInvitation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&invitation.ID, &invitation.CreatedAt,
		&invitation.UpdatedAt, &invitation.GroupID, &invitation.InviterID, &invitation.InviteeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding invitation: %w", err)
	}

	return invitation, nil
}

func (r *PostgresRepository) FindInvitationForInvitee(ctx context.Context, groupID, inviteeID uuid.UUID) (*models.GroupInvitation, error) {
	query := `SELECT id, created_at, updated_at, group_id, inviter_id, invitee_id
		FROM group_invitations WHERE group_id = $1 AND invitee_id = $2`

	invitation := &models.GroupInvitation{}
	err := r.db.QueryRowContext(ctx, query, groupID, inviteeID).Scan(&invitation.ID,
		&invitation.CreatedAt, &invitation.UpdatedAt, &invitation.GroupID,
		&invitation.InviterID, &invitation.InviteeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("groups: finding invitation for invitee: %w", err)
	}

	return invitation, nil
}

func (r *PostgresRepository) FindInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.GroupInvitation, error) {
	query := `SELECT id, created_at, updated_at, group_id, inviter_id, invitee_id
		FROM group_invitations WHERE group_id = $1 ORDER BY created_at`

	return r.findInvitations(ctx, query, groupID)
}

func (r *PostgresRepository) FindInvitationsForInvitee(ctx context.Context, inviteeID uuid.UUID) ([]models.GroupInvitation, error) {
	query := `SELECT id, created_at, updated_at, group_id, inviter_id, invitee_id
		FROM group_invitations WHERE invitee_id = $1 ORDER BY created_at`

	return r.findInvitations(ctx, query, inviteeID)
}

func (r *PostgresRepository) findInvitations(ctx context.Context, query string, arg any) ([]models.GroupInvitation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("groups: finding invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.GroupInvitation{}
	for rows.Next() {
		var invitation models.GroupInvitation
		err := rows.Scan(&invitation.ID, &invitation.CreatedAt, &invitation.UpdatedAt,
			&invitation.GroupID, &invitation.InviterID, &invitation.InviteeID)
		if err != nil {
			return nil, fmt.Errorf("groups: scanning invitation: %w", err)
		}
		invitations = append(invitations, invitation)
	}

	return invitations, rows.Err()
}

func (r *PostgresRepository) DeleteInvitation(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("groups: deleting invitation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_invitations WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("groups: deleting invitations for group: %w", err)
	}
	return nil
}

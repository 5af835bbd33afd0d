package httpapi

import (
	"time"

	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/services"
	"github.com/google/uuid"
)

// Response shapes. Secret material (code hashes, session secret hashes,
// encrypted TOTP secrets) never appears here.

type apiUser struct {
	ID           uuid.UUID           `json:"id"`
	CreatedAt    time.Time           `json:"created_at"`
	Username     string              `json:"username"`
	Email        string              `json:"email"`
	IsAdmin      bool                `json:"is_admin"`
	TwoFaEnabled bool                `json:"two_fa_enabled"`
	TwoFaMethod  *models.TwoFaMethod `json:"two_fa_method"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	AvatarID     *string             `json:"avatar_id"`
	NamespaceID  uuid.UUID           `json:"namespace_id"`
}

func toAPIUser(user *models.User) apiUser {
	return apiUser{
		ID:           user.ID,
		CreatedAt:    user.CreatedAt,
		Username:     user.Username,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		TwoFaEnabled: user.TwoFaEnabled,
		TwoFaMethod:  user.TwoFaMethod,
		Name:         user.Name,
		Description:  user.Description,
		AvatarID:     user.AvatarID,
		NamespaceID:  user.NamespaceID,
	}
}

type apiSession struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func toAPISession(session *models.Session) apiSession {
	return apiSession{ID: session.ID, CreatedAt: session.CreatedAt}
}

func toAPISessions(sessions []models.Session) []apiSession {
	out := make([]apiSession, 0, len(sessions))
	for i := range sessions {
		out = append(out, toAPISession(&sessions[i]))
	}
	return out
}

type apiRegistered struct {
	User    apiUser    `json:"user"`
	Session apiSession `json:"session"`
	Token   string     `json:"token"`
}

func toAPIRegistered(registered *services.Registered) apiRegistered {
	return apiRegistered{
		User:    toAPIUser(registered.User),
		Session: toAPISession(registered.Session),
		Token:   registered.Token,
	}
}

// apiSignedIn carries either a session credential or, when a second factor
// is still required, only the method of that factor.
type apiSignedIn struct {
	TwoFaMethod *models.TwoFaMethod `json:"two_fa_method,omitempty"`
	Session     *apiSession         `json:"session,omitempty"`
	Token       string              `json:"token,omitempty"`
}

func toAPISignedIn(signedIn *services.SignedIn) apiSignedIn {
	if signedIn.TwoFaRequired() {
		return apiSignedIn{TwoFaMethod: signedIn.TwoFaMethod}
	}
	session := toAPISession(signedIn.Session)
	return apiSignedIn{Session: &session, Token: signedIn.Token}
}

type apiPendingUser struct {
	ID uuid.UUID `json:"id"`
}

type apiPendingSession struct {
	ID uuid.UUID `json:"id"`
}

type apiPendingEmail struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type apiGroup struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Path        string    `json:"path"`
	AvatarID    *string   `json:"avatar_id"`
	NamespaceID uuid.UUID `json:"namespace_id"`
}

func toAPIGroup(group *models.Group) apiGroup {
	return apiGroup{
		ID:          group.ID,
		CreatedAt:   group.CreatedAt,
		Name:        group.Name,
		Description: group.Description,
		Path:        group.Path,
		AvatarID:    group.AvatarID,
		NamespaceID: group.NamespaceID,
	}
}

func toAPIGroups(groups []models.Group) []apiGroup {
	out := make([]apiGroup, 0, len(groups))
	for i := range groups {
		out = append(out, toAPIGroup(&groups[i]))
	}
	return out
}

type apiGroupMember struct {
	UserID   uuid.UUID        `json:"user_id"`
	Username string           `json:"username"`
	Name     string           `json:"name"`
	AvatarID *string          `json:"avatar_id"`
	JoinedAt time.Time        `json:"joined_at"`
	Role     models.GroupRole `json:"role"`
}

func toAPIGroupMembers(members []models.GroupMember) []apiGroupMember {
	out := make([]apiGroupMember, 0, len(members))
	for _, member := range members {
		out = append(out, apiGroupMember{
			UserID:   member.UserID,
			Username: member.Username,
			Name:     member.Name,
			AvatarID: member.AvatarID,
			JoinedAt: member.JoinedAt,
			Role:     member.Role,
		})
	}
	return out
}

type apiGroupInvitation struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	GroupID   uuid.UUID `json:"group_id"`
	InviterID uuid.UUID `json:"inviter_id"`
	InviteeID uuid.UUID `json:"invitee_id"`
}

func toAPIGroupInvitations(invitations []models.GroupInvitation) []apiGroupInvitation {
	out := make([]apiGroupInvitation, 0, len(invitations))
	for _, invitation := range invitations {
		out = append(out, apiGroupInvitation{
			ID:        invitation.ID,
			CreatedAt: invitation.CreatedAt,
			GroupID:   invitation.GroupID,
			InviterID: invitation.InviterID,
			InviteeID: invitation.InviteeID,
		})
	}
	return out
}

// Package models contains the kernel entities as stored in Postgres.
package models

import (
	"time"

	"github.com/google/uuid"
)

type TwoFaMethod string

const (
	TwoFaMethodTotp TwoFaMethod = "totp"
)

type GroupRole string

const (
	GroupRoleAdministrator GroupRole = "administrator"
	GroupRoleMember        GroupRole = "member"
)

type NamespaceType string

const (
	NamespaceTypeUser  NamespaceType = "user"
	NamespaceTypeGroup NamespaceType = "group"
)

type BillingPlan string

const (
	BillingPlanFree    BillingPlan = "free"
	BillingPlanStarter BillingPlan = "starter"
	BillingPlanPro     BillingPlan = "pro"
)

// Namespace is the tenancy boundary. Every resource of every module is
// scoped to a namespace, either a user's personal one or a group's.
type Namespace struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Path        string
	Type        NamespaceType
	UsedStorage int64
	Plan        BillingPlan
	ParentID    *uuid.UUID
}

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	BlockedAt *time.Time

	Username            string
	Email               string
	IsAdmin             bool
	TwoFaEnabled        bool
	TwoFaMethod         *TwoFaMethod
	EncryptedTotpSecret []byte
	TotpSecretNonce     []byte

	Name        string
	Description string
	AvatarID    *string

	NamespaceID uuid.UUID
}

type Group struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string
	Description string
	AvatarID    *string
	Path        string

	NamespaceID uuid.UUID
}

// Session is a long-lived credential of a signed-in user.
//
// The secret hash is blake2b(key=secret, data=session.id); the secret itself
// is 64 random bytes sent to the client once, inside the token
// base64(session.id || secret), and never persisted.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	SecretHash []byte

	UserID uuid.UUID
}

// PendingUser is a temporary record for a registration that has not been
// confirmed yet, so the users table is not filled with junk.
type PendingUser struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Username       string
	Email          string
	FailedAttempts int64
	CodeHash       string
}

// PendingSession is a temporary record for a sign-in that has not been
// confirmed yet. TwoFaVerified records that the first factor was verified
// and the flow is waiting for the TOTP challenge.
type PendingSession struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	CodeHash       string
	TwoFaVerified  bool
	FailedAttempts int64

	UserID uuid.UUID
}

// PendingEmail is a temporary record for an email change that has not been
// confirmed yet.
type PendingEmail struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	Email          string
	CodeHash       string
	FailedAttempts int64

	UserID uuid.UUID
}

type GroupMembership struct {
	JoinedAt time.Time

	Role GroupRole

	UserID  uuid.UUID
	GroupID uuid.UUID
}

type GroupInvitation struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time

	GroupID   uuid.UUID
	InviterID uuid.UUID
	InviteeID uuid.UUID
}

// GroupMember is the user-facing projection of a membership row joined with
// its user.
type GroupMember struct {
	UserID   uuid.UUID
	Username string
	Name     string
	AvatarID *string
	JoinedAt time.Time
	Role     GroupRole
}

// Package common defines the sentinel errors shared across layers. Callers
// match them with errors.Is; the HTTP layer owns the only mapping from these
// to status codes, so internal kinds never leak to clients by accident.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Authentication and session errors.
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrMustNotBeAuthenticated = errors.New("must not be authenticated")
	ErrInvalidSession         = errors.New("invalid session")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrUserBlocked            = errors.New("account is blocked")

	// Verification-code errors.
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts, please start over")
	ErrCodeExpired     = errors.New("code expired, please start over")

	// Not-found errors surfaced to clients.
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrNamespaceNotFound    = errors.New("namespace not found")
	ErrPendingEmailNotFound = errors.New("email verification not found")

	// Uniqueness errors.
	ErrEmailAlreadyExists     = errors.New("email is already in use")
	ErrUsernameAlreadyExists  = errors.New("username is already in use")
	ErrNamespaceAlreadyExists = errors.New("namespace is already in use")

	// Two-factor errors.
	ErrTwoFaNotEnabled     = errors.New("two factor authentication is not enabled")
	ErrTwoFaAlreadyEnabled = errors.New("two factor authentication is already enabled")

	// Group errors.
	ErrAtLeastOneAdminMustRemainInGroup = errors.New("at least one administrator must remain in the group")
	ErrSomeUsersNotFound                = errors.New("some users were not found")
	ErrMembersLimitReached              = errors.New("the group has reached its members limit, please upgrade your plan")

	// Validation errors.
	ErrInvalidEmail       = errors.New("email is not valid")
	ErrInvalidUsername    = errors.New("username is not valid")
	ErrInvalidNamespace   = errors.New("namespace is not valid")
	ErrInvalidName        = errors.New("name is not valid")
	ErrInvalidDescription = errors.New("description is not valid")
	ErrInvalidArgument    = errors.New("invalid argument")
)

package services

import (
	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

// Actor identifies who is calling an operation: a signed-in user, an
// anonymous visitor with a client-generated id, or nobody at all. The HTTP
// middleware builds it once per request.
type Actor struct {
	User        *models.User
	AnonymousID *uuid.UUID
}

// CurrentUser returns the signed-in user or ErrAuthenticationRequired.
func (a Actor) CurrentUser() (*models.User, error) {
	if a.User == nil {
		return nil, common.ErrAuthenticationRequired
	}
	return a.User, nil
}

// CurrentAnonymousID returns the visitor id or ErrAuthenticationRequired.
func (a Actor) CurrentAnonymousID() (uuid.UUID, error) {
	if a.AnonymousID == nil {
		return uuid.Nil, common.ErrAuthenticationRequired
	}
	return *a.AnonymousID, nil
}

// checkIsNotAuthenticated guards flows like registration and sign-in that
// only make sense for visitors.
func (a Actor) checkIsNotAuthenticated() error {
	if a.User != nil {
		return common.ErrMustNotBeAuthenticated
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

// SignedIn is the result of a completed sign-in. When the account has
// two-factor authentication enabled, Session and Token are empty and
// TwoFaMethod names the second factor the client still has to provide via
// CompleteTwoFaChallenge.
type SignedIn struct {
	User        *models.User
	Session     *models.Session
	Token       string
	TwoFaMethod *models.TwoFaMethod
}

// TwoFaRequired reports whether the sign-in is waiting on a second factor.
func (s *SignedIn) TwoFaRequired() bool {
	return s.TwoFaMethod != nil
}

// SignIn starts a sign-in with an email or username. A verification code is
// sent to the account's address; no credential is issued yet.
func (s *UserService) SignIn(ctx context.Context, actor Actor, emailOrUsername string) (*models.PendingSession, error) {
	if err := actor.checkIsNotAuthenticated(); err != nil {
		return nil, err
	}

	emailOrUsername = strings.ToLower(strings.TrimSpace(emailOrUsername))
	usersRepo := s.repos.Users(s.db)

	var user *models.User
	var err error
	if strings.Contains(emailOrUsername, "@") {
		user, err = usersRepo.FindByEmail(ctx, emailOrUsername)
	} else {
		user, err = usersRepo.FindByUsername(ctx, emailOrUsername)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	code, codeHash, err := newVerificationCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pendingSession := &models.PendingSession{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		CodeHash:  codeHash,
		UserID:    user.ID,
	}
	if err := s.repos.Sessions(s.db).CreatePendingSession(ctx, pendingSession); err != nil {
		return nil, err
	}

	s.pushEmailMessage(ctx, queue.MessageTypeSignInEmail, queue.SignInEmailData{
		Email: user.Email,
		Name:  user.Name,
		Code:  FormatCode(code),
	})

	return pendingSession, nil
}

// CompleteSignIn verifies the emailed code. Accounts without 2FA get a
// session immediately; accounts with 2FA get the first factor marked
// verified and must still pass CompleteTwoFaChallenge.
func (s *UserService) CompleteSignIn(ctx context.Context, actor Actor, pendingSessionID uuid.UUID, code string) (*SignedIn, error) {
	if err := actor.checkIsNotAuthenticated(); err != nil {
		return nil, err
	}

	sessionsRepo := s.repos.Sessions(s.db)

	pendingSession, err := sessionsRepo.FindPendingSessionByID(ctx, pendingSessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrSessionNotFound
		}
		return nil, err
	}

	if err := checkPendingRecord(pendingSession.CreatedAt, pendingSession.FailedAttempts, pendingSessionExpiry); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			if deleteErr := sessionsRepo.DeletePendingSession(ctx, pendingSession.ID); deleteErr != nil {
				return nil, deleteErr
			}
		}
		return nil, err
	}

	ok, err := verifyPendingCode(code, pendingSession.CodeHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.failPendingSessionAttempt(ctx, pendingSession)
	}

	user, err := s.repos.Users(s.db).FindByID(ctx, pendingSession.UserID)
	if err != nil {
		return nil, err
	}
	if user.BlockedAt != nil {
		return nil, common.ErrUserBlocked
	}

	if user.TwoFaEnabled {
		pendingSession.TwoFaVerified = true
		pendingSession.UpdatedAt = time.Now().UTC()
		if err := sessionsRepo.UpdatePendingSession(ctx, pendingSession); err != nil {
			return nil, err
		}
		return &SignedIn{User: user, TwoFaMethod: user.TwoFaMethod}, nil
	}

	return s.issueSession(ctx, user, pendingSession.ID)
}

// CompleteTwoFaChallenge verifies the TOTP code after a successful first
// factor and issues the session.
func (s *UserService) CompleteTwoFaChallenge(ctx context.Context, actor Actor, pendingSessionID uuid.UUID, totpCode string) (*SignedIn, error) {
	if err := actor.checkIsNotAuthenticated(); err != nil {
		return nil, err
	}

	sessionsRepo := s.repos.Sessions(s.db)

	pendingSession, err := sessionsRepo.FindPendingSessionByID(ctx, pendingSessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrSessionNotFound
		}
		return nil, err
	}

	if err := checkPendingRecord(pendingSession.CreatedAt, pendingSession.FailedAttempts, pendingSessionTwoFaExpiry); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			if deleteErr := sessionsRepo.DeletePendingSession(ctx, pendingSession.ID); deleteErr != nil {
				return nil, deleteErr
			}
		}
		return nil, err
	}

	// The challenge is only reachable once the email code was verified.
	if !pendingSession.TwoFaVerified {
		return nil, common.ErrPermissionDenied
	}

	user, err := s.repos.Users(s.db).FindByID(ctx, pendingSession.UserID)
	if err != nil {
		return nil, err
	}
	if user.BlockedAt != nil {
		return nil, common.ErrUserBlocked
	}
	if !user.TwoFaEnabled {
		return nil, common.ErrTwoFaNotEnabled
	}

	ok, err := s.validateTotpCode(user, totpCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.failPendingSessionAttempt(ctx, pendingSession)
	}

	return s.issueSession(ctx, user, pendingSession.ID)
}

// failPendingSessionAttempt counts a failed attempt and returns the error to
// surface: ErrTooManyAttempts when the threshold was just crossed (record
// deleted), ErrInvalidCode otherwise.
func (s *UserService) failPendingSessionAttempt(ctx context.Context, pendingSession *models.PendingSession) error {
	sessionsRepo := s.repos.Sessions(s.db)

	pendingSession.FailedAttempts++
	pendingSession.UpdatedAt = time.Now().UTC()
	if pendingSession.FailedAttempts >= maxFailedAttempts {
		if err := sessionsRepo.DeletePendingSession(ctx, pendingSession.ID); err != nil {
			return err
		}
		return common.ErrTooManyAttempts
	}
	if err := sessionsRepo.UpdatePendingSession(ctx, pendingSession); err != nil {
		return err
	}
	return common.ErrInvalidCode
}

// issueSession creates the session and removes the pending record in one
// transaction.
func (s *UserService) issueSession(ctx context.Context, user *models.User, pendingSessionID uuid.UUID) (*SignedIn, error) {
	signedIn := &SignedIn{User: user}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, token, err := s.newSession(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if err := s.repos.Sessions(tx).DeletePendingSession(ctx, pendingSessionID); err != nil {
			return err
		}
		signedIn.Session = session
		signedIn.Token = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	return signedIn, nil
}

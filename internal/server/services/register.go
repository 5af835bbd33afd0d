package services

import (
	"context"
	"errors"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

// Registered is the result of a completed registration: the fresh account
// and its first session.
type Registered struct {
	User    *models.User
	Session *models.Session
	Token   string
}

// Register starts a registration. Nothing durable is created besides a
// pending record holding the hashed verification code; the account itself
// appears only when CompleteRegistration succeeds.
func (s *UserService) Register(ctx context.Context, actor Actor, email, username string) (*models.PendingUser, error) {
	if err := actor.checkIsNotAuthenticated(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	username = normalizeUsername(username)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	usersRepo := s.repos.Users(s.db)

	if _, err := usersRepo.FindByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailAlreadyExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	// The username claims a namespace path, so the check goes through
	// namespaces rather than users: group paths reserve usernames too.
	if _, err := s.repos.Namespaces(s.db).FindByPath(ctx, username); err == nil {
		return nil, common.ErrUsernameAlreadyExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	code, codeHash, err := newVerificationCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pendingUser := &models.PendingUser{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Username:  username,
		Email:     email,
		CodeHash:  codeHash,
	}
	if err := usersRepo.CreatePendingUser(ctx, pendingUser); err != nil {
		return nil, err
	}

	s.pushEmailMessage(ctx, queue.MessageTypeRegistrationEmail, queue.RegistrationEmailData{
		Email:    email,
		Username: username,
		Code:     FormatCode(code),
	})

	return pendingUser, nil
}

// CompleteRegistration verifies the emailed code and atomically creates the
// personal namespace, the user and a first session. The very first account
// of an installation becomes an administrator.
func (s *UserService) CompleteRegistration(ctx context.Context, actor Actor, pendingUserID uuid.UUID, code string) (*Registered, error) {
	if err := actor.checkIsNotAuthenticated(); err != nil {
		return nil, err
	}

	usersRepo := s.repos.Users(s.db)

	pendingUser, err := usersRepo.FindPendingUserByID(ctx, pendingUserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	if err := checkPendingRecord(pendingUser.CreatedAt, pendingUser.FailedAttempts, pendingUserExpiry); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			if deleteErr := usersRepo.DeletePendingUser(ctx, pendingUser.ID); deleteErr != nil {
				return nil, deleteErr
			}
		}
		return nil, err
	}

	ok, err := verifyPendingCode(code, pendingUser.CodeHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		pendingUser.FailedAttempts++
		pendingUser.UpdatedAt = time.Now().UTC()
		if pendingUser.FailedAttempts >= maxFailedAttempts {
			if err := usersRepo.DeletePendingUser(ctx, pendingUser.ID); err != nil {
				return nil, err
			}
			return nil, common.ErrTooManyAttempts
		}
		if err := usersRepo.UpdatePendingUser(ctx, pendingUser); err != nil {
			return nil, err
		}
		return nil, common.ErrInvalidCode
	}

	registered := &Registered{}

	// Serializable so two concurrent first registrations cannot both read a
	// zero user count and both become administrators.
	err = dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		txUsers := s.repos.Users(tx)
		txNamespaces := s.repos.Namespaces(tx)

		// Re-check uniqueness inside the transaction; the pending record may
		// have raced another registration for the same address or path.
		if _, err := txUsers.FindByEmail(ctx, pendingUser.Email); err == nil {
			return common.ErrEmailAlreadyExists
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if _, err := txNamespaces.FindByPath(ctx, pendingUser.Username); err == nil {
			return common.ErrUsernameAlreadyExists
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		userCount, err := txUsers.Count(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		namespace := &models.Namespace{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
			Path:      pendingUser.Username,
			Type:      models.NamespaceTypeUser,
			Plan:      models.BillingPlanFree,
		}
		if err := txNamespaces.Create(ctx, namespace); err != nil {
			return err
		}

		user := &models.User{
			ID:          uuid.New(),
			CreatedAt:   now,
			UpdatedAt:   now,
			Username:    pendingUser.Username,
			Email:       pendingUser.Email,
			IsAdmin:     userCount == 0,
			Name:        pendingUser.Username,
			NamespaceID: namespace.ID,
		}
		if err := txUsers.Create(ctx, user); err != nil {
			return err
		}

		session, token, err := s.newSession(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if err := txUsers.DeletePendingUser(ctx, pendingUser.ID); err != nil {
			return err
		}

		registered.User = user
		registered.Session = session
		registered.Token = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	return registered, nil
}

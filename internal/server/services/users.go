// Package services implements the operations of the identity and
// authorization kernel. Services are constructed once at startup over a
// database handle, the repository manager and the drivers; repositories are
// bound per call so the same SQL composes inside transactions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/drivers/storage"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	maxFailedAttempts = 5

	pendingUserExpiry    = 30 * time.Minute
	pendingSessionExpiry = 30 * time.Minute
	// A 2FA challenge happens after the email code, so it gets a little more.
	pendingSessionTwoFaExpiry = 35 * time.Minute
	pendingEmailExpiry        = 30 * time.Minute

	avatarMaxSize = 3 * 1024 * 1024

	avatarUploadURLExpiry = 15 * time.Minute
)

type UserService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	config    *config.Config
	logger    logging.Logger
	queue     queue.Queue
	storage   storage.Storage
	masterKey []byte
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	logger logging.Logger, q queue.Queue, st storage.Storage) (*UserService, error) {
	masterKey, err := cfg.DecodedMasterKey()
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:        db,
		repos:     repos,
		config:    cfg,
		logger:    logger,
		queue:     q,
		storage:   st,
		masterKey: masterKey,
	}, nil
}

// checkPendingRecord applies the shared discipline of every one-time-code
// record: expiry first, then the attempts threshold. Callers delete the
// record when ErrTooManyAttempts comes back.
func checkPendingRecord(createdAt time.Time, failedAttempts int64, expiry time.Duration) error {
	if time.Now().UTC().After(createdAt.Add(expiry)) {
		return common.ErrCodeExpired
	}
	if failedAttempts >= maxFailedAttempts {
		return common.ErrTooManyAttempts
	}
	return nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	return actor.CurrentUser()
}

// UpdateMyProfile changes name and description of the caller's account.
func (s *UserService) UpdateMyProfile(ctx context.Context, actor Actor, name, description string) (*models.User, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	user.Name = name
	user.Description = description
	user.UpdatedAt = time.Now().UTC()

	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateMyAvatar stores a new avatar in the object store and points the
// account at it. The previous avatar object is removed.
func (s *UserService) UpdateMyAvatar(ctx context.Context, actor Actor, avatar []byte) (*models.User, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	if len(avatar) == 0 || len(avatar) > avatarMaxSize {
		return nil, common.ErrInvalidArgument
	}

	avatarID := uuid.New().String()
	if err := s.storage.Put(ctx, avatarStorageKey(avatarID), "image/jpeg", avatar); err != nil {
		return nil, err
	}

	oldAvatarID := user.AvatarID
	user.AvatarID = &avatarID
	user.UpdatedAt = time.Now().UTC()
	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return nil, err
	}

	if oldAvatarID != nil {
		if err := s.storage.Delete(ctx, avatarStorageKey(*oldAvatarID)); err != nil {
			s.logger.Warn(ctx, "users: deleting old avatar", "avatar_id", *oldAvatarID, "error", err)
		}
	}

	return user, nil
}

func avatarStorageKey(avatarID string) string {
	return "avatars/" + avatarID
}

// AvatarUpload is a presigned direct-upload slot for a new avatar.
type AvatarUpload struct {
	AvatarID string
	URL      string
}

// NewAvatarUploadURL presigns a direct upload to the object store, for
// clients that would rather not proxy the image through the API. The account
// is not touched until ConfirmAvatarUpload.
func (s *UserService) NewAvatarUploadURL(ctx context.Context, actor Actor) (*AvatarUpload, error) {
	if _, err := actor.CurrentUser(); err != nil {
		return nil, err
	}

	avatarID := uuid.New().String()
	url, err := s.storage.SignedUploadURL(ctx, avatarStorageKey(avatarID), avatarUploadURLExpiry)
	if err != nil {
		return nil, err
	}

	return &AvatarUpload{AvatarID: avatarID, URL: url}, nil
}

// ConfirmAvatarUpload points the account at an avatar uploaded through a
// presigned URL. The object has to exist; the previous avatar is removed.
func (s *UserService) ConfirmAvatarUpload(ctx context.Context, actor Actor, avatarID string) (*models.User, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(avatarID); err != nil {
		return nil, common.ErrInvalidArgument
	}

	body, err := s.storage.Get(ctx, avatarStorageKey(avatarID))
	if err != nil {
		return nil, common.ErrInvalidArgument
	}
	body.Close()

	oldAvatarID := user.AvatarID
	user.AvatarID = &avatarID
	user.UpdatedAt = time.Now().UTC()
	if err := s.repos.Users(s.db).Update(ctx, user); err != nil {
		return nil, err
	}

	if oldAvatarID != nil {
		if err := s.storage.Delete(ctx, avatarStorageKey(*oldAvatarID)); err != nil {
			s.logger.Warn(ctx, "users: deleting old avatar", "avatar_id", *oldAvatarID, "error", err)
		}
	}

	return user, nil
}

// UpdateMyEmail starts an email change: the new address gets a verification
// code and nothing changes until VerifyEmail succeeds.
func (s *UserService) UpdateMyEmail(ctx context.Context, actor Actor, newEmail string) (*models.PendingEmail, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}

	newEmail = normalizeEmail(newEmail)
	if err := validateEmail(newEmail); err != nil {
		return nil, err
	}

	if _, err := s.repos.Users(s.db).FindByEmail(ctx, newEmail); err == nil {
		return nil, common.ErrEmailAlreadyExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	code, codeHash, err := newVerificationCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pendingEmail := &models.PendingEmail{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Email:     newEmail,
		CodeHash:  codeHash,
		UserID:    user.ID,
	}
	if err := s.repos.Users(s.db).CreatePendingEmail(ctx, pendingEmail); err != nil {
		return nil, err
	}

	s.pushEmailMessage(ctx, queue.MessageTypeVerifyEmailEmail, queue.VerifyEmailEmailData{
		Email: newEmail,
		Name:  user.Name,
		Code:  FormatCode(code),
	})

	return pendingEmail, nil
}

// VerifyEmail completes an email change started by UpdateMyEmail.
func (s *UserService) VerifyEmail(ctx context.Context, actor Actor, pendingEmailID uuid.UUID, code string) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	usersRepo := s.repos.Users(s.db)

	pendingEmail, err := usersRepo.FindPendingEmailByID(ctx, pendingEmailID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrPendingEmailNotFound
		}
		return err
	}
	if pendingEmail.UserID != user.ID {
		return common.ErrPermissionDenied
	}

	if err := checkPendingRecord(pendingEmail.CreatedAt, pendingEmail.FailedAttempts, pendingEmailExpiry); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			if deleteErr := usersRepo.DeletePendingEmail(ctx, pendingEmail.ID); deleteErr != nil {
				return deleteErr
			}
		}
		return err
	}

	ok, err := verifyPendingCode(code, pendingEmail.CodeHash)
	if err != nil {
		return err
	}
	if !ok {
		pendingEmail.FailedAttempts++
		pendingEmail.UpdatedAt = time.Now().UTC()
		if pendingEmail.FailedAttempts >= maxFailedAttempts {
			if err := usersRepo.DeletePendingEmail(ctx, pendingEmail.ID); err != nil {
				return err
			}
			return common.ErrTooManyAttempts
		}
		if err := usersRepo.UpdatePendingEmail(ctx, pendingEmail); err != nil {
			return err
		}
		return common.ErrInvalidCode
	}

	oldEmail := user.Email

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txUsers := s.repos.Users(tx)

		// Somebody may have claimed the address since the change started.
		if _, err := txUsers.FindByEmail(ctx, pendingEmail.Email); err == nil {
			return common.ErrEmailAlreadyExists
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		user.Email = pendingEmail.Email
		user.UpdatedAt = time.Now().UTC()
		if err := txUsers.Update(ctx, user); err != nil {
			return err
		}
		return txUsers.DeletePendingEmail(ctx, pendingEmail.ID)
	})
	if err != nil {
		return err
	}

	// Warn the old address so a hijacked account is noticed.
	s.pushEmailMessage(ctx, queue.MessageTypeEmailChangedEmail, queue.EmailChangedEmailData{
		Email:    oldEmail,
		Name:     user.Name,
		NewEmail: user.Email,
	})

	return nil
}

// DeleteOldData purges expired pending registrations, sign-ins and email
// changes. The worker runs it on a schedule.
func (s *UserService) DeleteOldData(ctx context.Context) error {
	before := time.Now().UTC().Add(-pendingUserExpiry)

	deletedUsers, err := s.repos.Users(s.db).DeletePendingUsersCreatedBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("deleting old pending users: %w", err)
	}

	deletedSessions, err := s.repos.Sessions(s.db).DeletePendingSessionsCreatedBefore(ctx,
		time.Now().UTC().Add(-pendingSessionTwoFaExpiry))
	if err != nil {
		return fmt.Errorf("deleting old pending sessions: %w", err)
	}

	deletedEmails, err := s.repos.Users(s.db).DeletePendingEmailsCreatedBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("deleting old pending emails: %w", err)
	}

	s.logger.Info(ctx, "deleted old data",
		"pending_users", deletedUsers,
		"pending_sessions", deletedSessions,
		"pending_emails", deletedEmails)

	return nil
}

// pushEmailMessage queues an outbound email. Delivery is best effort: the
// operation that triggered it has already committed, so a queue failure is
// logged and swallowed.
func (s *UserService) pushEmailMessage(ctx context.Context, messageType queue.MessageType, data any) {
	message, err := queue.NewMessage(messageType, data)
	if err != nil {
		s.logger.Warn(ctx, "users: building queue message", "type", string(messageType), "error", err)
		return
	}
	if err := s.queue.Push(ctx, message, nil); err != nil {
		s.logger.Warn(ctx, "users: queueing email", "type", string(messageType), "error", err)
	}
}

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/cryptox"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

// sessionTokenSize is the decoded size of a session token: the 16-byte
// session id followed by the secret. Anything else is rejected before any
// database work.
const sessionTokenSize = 16 + cryptox.SessionSecretSize

// EncodeSessionToken builds the opaque bearer token handed to the client
// exactly once: base64url(session_id || secret).
func EncodeSessionToken(sessionID uuid.UUID, secret []byte) string {
	raw := make([]byte, 0, sessionTokenSize)
	raw = append(raw, sessionID[:]...)
	raw = append(raw, secret...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeSessionToken splits a token back into session id and secret. Every
// malformed input maps to the single ErrInvalidSession so callers cannot
// distinguish failure modes.
func DecodeSessionToken(token string) (uuid.UUID, []byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != sessionTokenSize {
		return uuid.Nil, nil, common.ErrInvalidSession
	}

	sessionID, err := uuid.FromBytes(raw[:16])
	if err != nil {
		return uuid.Nil, nil, common.ErrInvalidSession
	}

	return sessionID, raw[16:], nil
}

// newSession creates and persists a session for userID and returns it with
// its encoded token. The secret never touches the database: only
// blake2b(key=secret, data=session_id) is stored.
func (s *UserService) newSession(ctx context.Context, db dbx.DBTX, userID uuid.UUID) (*models.Session, string, error) {
	secret, err := cryptox.RandBytes(cryptox.SessionSecretSize)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
	}

	session.SecretHash, err = cryptox.HashSessionSecret(secret, session.ID[:])
	if err != nil {
		return nil, "", err
	}

	if err := s.repos.Sessions(db).Create(ctx, session); err != nil {
		return nil, "", err
	}

	return session, EncodeSessionToken(session.ID, secret), nil
}

// DecodeAndValidateSessionToken authenticates a bearer token: decode, load
// the session, recompute the keyed hash and compare in constant time, then
// load the user. Blocked accounts are rejected.
func (s *UserService) DecodeAndValidateSessionToken(ctx context.Context, token string) (*models.User, *models.Session, error) {
	sessionID, secret, err := DecodeSessionToken(token)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.repos.Sessions(s.db).FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidSession
		}
		return nil, nil, err
	}

	hash, err := cryptox.HashSessionSecret(secret, session.ID[:])
	if err != nil {
		return nil, nil, err
	}
	if !cryptox.ConstantTimeCompare(hash, session.SecretHash) {
		return nil, nil, common.ErrInvalidSession
	}

	user, err := s.repos.Users(s.db).FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidSession
		}
		return nil, nil, err
	}
	if user.BlockedAt != nil {
		return nil, nil, common.ErrUserBlocked
	}

	return user, session, nil
}

// RevokeSession deletes one of the caller's sessions. Signing out is revoking
// the current session.
func (s *UserService) RevokeSession(ctx context.Context, actor Actor, sessionID uuid.UUID) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}

	session, err := s.repos.Sessions(s.db).FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrSessionNotFound
		}
		return err
	}
	if session.UserID != user.ID {
		return common.ErrPermissionDenied
	}

	return s.repos.Sessions(s.db).Delete(ctx, session.ID)
}

// RevokeAllSessions signs the caller out everywhere: every session of the
// account is deleted, the one behind this call included.
func (s *UserService) RevokeAllSessions(ctx context.Context, actor Actor) error {
	user, err := actor.CurrentUser()
	if err != nil {
		return err
	}
	return s.repos.Sessions(s.db).DeleteByUserID(ctx, user.ID)
}

// FindMySessions lists the caller's sessions, newest first.
func (s *UserService) FindMySessions(ctx context.Context, actor Actor) ([]models.Session, error) {
	user, err := actor.CurrentUser()
	if err != nil {
		return nil, err
	}
	return s.repos.Sessions(s.db).FindByUserID(ctx, user.ID)
}

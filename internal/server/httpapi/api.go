// Package httpapi exposes the kernel over a JSON HTTP API. Handlers stay
// thin: decode, call a service with the request's Actor, encode. All policy
// lives in the services.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// UserService is the slice of the user service the HTTP layer calls.
type UserService interface {
	DecodeAndValidateSessionToken(ctx context.Context, token string) (*models.User, *models.Session, error)

	Register(ctx context.Context, actor services.Actor, email, username string) (*models.PendingUser, error)
	CompleteRegistration(ctx context.Context, actor services.Actor, pendingUserID uuid.UUID, code string) (*services.Registered, error)
	SignIn(ctx context.Context, actor services.Actor, emailOrUsername string) (*models.PendingSession, error)
	CompleteSignIn(ctx context.Context, actor services.Actor, pendingSessionID uuid.UUID, code string) (*services.SignedIn, error)
	CompleteTwoFaChallenge(ctx context.Context, actor services.Actor, pendingSessionID uuid.UUID, totpCode string) (*services.SignedIn, error)

	Me(ctx context.Context, actor services.Actor) (*models.User, error)
	UpdateMyProfile(ctx context.Context, actor services.Actor, name, description string) (*models.User, error)
	UpdateMyAvatar(ctx context.Context, actor services.Actor, avatar []byte) (*models.User, error)
	NewAvatarUploadURL(ctx context.Context, actor services.Actor) (*services.AvatarUpload, error)
	ConfirmAvatarUpload(ctx context.Context, actor services.Actor, avatarID string) (*models.User, error)
	UpdateMyEmail(ctx context.Context, actor services.Actor, newEmail string) (*models.PendingEmail, error)
	VerifyEmail(ctx context.Context, actor services.Actor, pendingEmailID uuid.UUID, code string) error

	FindMySessions(ctx context.Context, actor services.Actor) ([]models.Session, error)
	RevokeSession(ctx context.Context, actor services.Actor, sessionID uuid.UUID) error
	RevokeAllSessions(ctx context.Context, actor services.Actor) error

	SetupTwoFa(ctx context.Context, actor services.Actor) ([]byte, error)
	CompleteTwoFaSetup(ctx context.Context, actor services.Actor, code string) error
	DisableTwoFa(ctx context.Context, actor services.Actor, code string) error
}

// GroupService is the slice of the group service the HTTP layer calls.
type GroupService interface {
	CreateGroup(ctx context.Context, actor services.Actor, name, path, description string) (*models.Group, error)
	FindGroup(ctx context.Context, actor services.Actor, groupID uuid.UUID) (*models.Group, error)
	FindMyGroups(ctx context.Context, actor services.Actor) ([]models.Group, error)
	FindGroupMembers(ctx context.Context, actor services.Actor, groupID uuid.UUID) ([]models.GroupMember, error)
	DeleteGroup(ctx context.Context, actor services.Actor, groupID uuid.UUID) error
	QuitGroup(ctx context.Context, actor services.Actor, groupID uuid.UUID) error
	RemoveMemberFromGroup(ctx context.Context, actor services.Actor, groupID uuid.UUID, username string) error

	InvitePeopleInGroup(ctx context.Context, actor services.Actor, groupID uuid.UUID, usernames []string) ([]models.GroupInvitation, error)
	FindMyGroupInvitations(ctx context.Context, actor services.Actor) ([]models.GroupInvitation, error)
	AcceptGroupInvitation(ctx context.Context, actor services.Actor, invitationID uuid.UUID) error
	DeclineGroupInvitation(ctx context.Context, actor services.Actor, invitationID uuid.UUID) error
	CancelGroupInvitation(ctx context.Context, actor services.Actor, invitationID uuid.UUID) error
}

// NamespaceService is the slice of the namespace service the HTTP layer calls.
type NamespaceService interface {
	CheckNamespaceExists(ctx context.Context, db dbx.DBTX, path string) (bool, error)
}

type Handler struct {
	users      UserService
	groups     GroupService
	namespaces NamespaceService
	db         *sql.DB
	logger     logging.Logger
}

func NewHandler(users UserService, groups GroupService, namespaces NamespaceService,
	db *sql.DB, logger logging.Logger) *Handler {
	return &Handler{
		users:      users,
		groups:     groups,
		namespaces: namespaces,
		db:         db,
		logger:     logger,
	}
}

// Router builds the chi router with all routes mounted behind the actor
// middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(h.withActor)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, common.ErrNotFound)
	})

	r.Post("/register", h.register)
	r.Post("/register/complete", h.completeRegistration)
	r.Post("/sign-in", h.signIn)
	r.Post("/sign-in/complete", h.completeSignIn)
	r.Post("/sign-in/two-fa", h.completeTwoFaChallenge)

	r.Get("/namespaces/{path}/exists", h.namespaceExists)

	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.me)
		r.Put("/profile", h.updateMyProfile)
		r.Put("/avatar", h.updateMyAvatar)
		r.Post("/avatar/upload-url", h.newAvatarUploadURL)
		r.Post("/avatar/confirm", h.confirmAvatarUpload)
		r.Put("/email", h.updateMyEmail)
		r.Post("/email/verify", h.verifyEmail)
		r.Get("/sessions", h.findMySessions)
		r.Delete("/sessions", h.revokeAllSessions)
		r.Delete("/sessions/{sessionID}", h.revokeSession)
		r.Post("/two-fa/setup", h.setupTwoFa)
		r.Post("/two-fa/complete", h.completeTwoFaSetup)
		r.Post("/two-fa/disable", h.disableTwoFa)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.findMyGroups)
		r.Post("/", h.createGroup)
		r.Route("/{groupID}", func(r chi.Router) {
			r.Get("/", h.findGroup)
			r.Delete("/", h.deleteGroup)
			r.Get("/members", h.findGroupMembers)
			r.Delete("/members/{username}", h.removeMemberFromGroup)
			r.Post("/invitations", h.invitePeopleInGroup)
			r.Post("/quit", h.quitGroup)
		})
	})

	r.Route("/invitations", func(r chi.Router) {
		r.Get("/", h.findMyGroupInvitations)
		r.Post("/{invitationID}/accept", h.acceptGroupInvitation)
		r.Post("/{invitationID}/decline", h.declineGroupInvitation)
		r.Post("/{invitationID}/cancel", h.cancelGroupInvitation)
	})

	return r
}

// uuidParam parses a uuid path parameter. A malformed id is an invalid
// argument, never a 404, so enumeration attempts learn nothing extra.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, common.ErrInvalidArgument
	}
	return id, nil
}

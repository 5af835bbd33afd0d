package httpapi

import (
	"io"
	"net/http"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/google/uuid"
)

// maxAvatarBytes bounds the request body of an avatar upload before the
// service-level size check even runs.
const maxAvatarBytes = 3*1024*1024 + 1

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIUser(user))
}

type updateMyProfileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) updateMyProfile(w http.ResponseWriter, r *http.Request) {
	var req updateMyProfileRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.users.UpdateMyProfile(r.Context(), actorFromContext(r.Context()), req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIUser(user))
}

// updateMyAvatar takes the image as the raw request body rather than JSON.
func (h *Handler) updateMyAvatar(w http.ResponseWriter, r *http.Request) {
	avatar, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		h.respondError(w, r, common.ErrInvalidArgument)
		return
	}

	user, err := h.users.UpdateMyAvatar(r.Context(), actorFromContext(r.Context()), avatar)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIUser(user))
}

type avatarUploadResponse struct {
	AvatarID string `json:"avatar_id"`
	URL      string `json:"url"`
}

func (h *Handler) newAvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	upload, err := h.users.NewAvatarUploadURL(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, avatarUploadResponse{AvatarID: upload.AvatarID, URL: upload.URL})
}

type confirmAvatarUploadRequest struct {
	AvatarID string `json:"avatar_id"`
}

func (h *Handler) confirmAvatarUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmAvatarUploadRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.users.ConfirmAvatarUpload(r.Context(), actorFromContext(r.Context()), req.AvatarID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIUser(user))
}

type updateMyEmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) updateMyEmail(w http.ResponseWriter, r *http.Request) {
	var req updateMyEmailRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pendingEmail, err := h.users.UpdateMyEmail(r.Context(), actorFromContext(r.Context()), req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, apiPendingEmail{ID: pendingEmail.ID, Email: pendingEmail.Email})
}

type verifyEmailRequest struct {
	PendingEmailID uuid.UUID `json:"pending_email_id"`
	Code           string    `json:"code"`
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.users.VerifyEmail(r.Context(), actorFromContext(r.Context()), req.PendingEmailID, req.Code); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) findMySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.users.FindMySessions(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPISessions(sessions))
}

// revokeAllSessions is sign-out-everywhere: it also kills the session the
// request came in on.
func (h *Handler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.users.RevokeAllSessions(r.Context(), actorFromContext(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.users.RevokeSession(r.Context(), actorFromContext(r.Context()), sessionID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

// setupTwoFa responds with the provisioning QR code as a PNG, not with the
// JSON envelope.
func (h *Handler) setupTwoFa(w http.ResponseWriter, r *http.Request) {
	png, err := h.users.SetupTwoFa(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Error(r.Context(), "httpapi: writing qr code", "error", err)
	}
}

type twoFaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) completeTwoFaSetup(w http.ResponseWriter, r *http.Request) {
	var req twoFaCodeRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.users.CompleteTwoFaSetup(r.Context(), actorFromContext(r.Context()), req.Code); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) disableTwoFa(w http.ResponseWriter, r *http.Request) {
	var req twoFaCodeRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.users.DisableTwoFa(r.Context(), actorFromContext(r.Context()), req.Code); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pendingUser, err := h.users.Register(r.Context(), actorFromContext(r.Context()), req.Email, req.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, apiPendingUser{ID: pendingUser.ID})
}

type completeRegistrationRequest struct {
	PendingUserID uuid.UUID `json:"pending_user_id"`
	Code          string    `json:"code"`
}

func (h *Handler) completeRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeRegistrationRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	registered, err := h.users.CompleteRegistration(r.Context(), actorFromContext(r.Context()), req.PendingUserID, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIRegistered(registered))
}

type signInRequest struct {
	EmailOrUsername string `json:"email_or_username"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pendingSession, err := h.users.SignIn(r.Context(), actorFromContext(r.Context()), req.EmailOrUsername)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, apiPendingSession{ID: pendingSession.ID})
}

type completeSignInRequest struct {
	PendingSessionID uuid.UUID `json:"pending_session_id"`
	Code             string    `json:"code"`
}

func (h *Handler) completeSignIn(w http.ResponseWriter, r *http.Request) {
	var req completeSignInRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	signedIn, err := h.users.CompleteSignIn(r.Context(), actorFromContext(r.Context()), req.PendingSessionID, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPISignedIn(signedIn))
}

func (h *Handler) completeTwoFaChallenge(w http.ResponseWriter, r *http.Request) {
	var req completeSignInRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	signedIn, err := h.users.CompleteTwoFaChallenge(r.Context(), actorFromContext(r.Context()), req.PendingSessionID, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPISignedIn(signedIn))
}

type namespaceExistsResponse struct {
	Exists bool `json:"exists"`
}

// namespaceExists lets clients check path availability during registration
// and group creation. It is intentionally anonymous-friendly.
func (h *Handler) namespaceExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.namespaces.CheckNamespaceExists(r.Context(), h.db, chi.URLParam(r, "path"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, namespaceExistsResponse{Exists: exists})
}

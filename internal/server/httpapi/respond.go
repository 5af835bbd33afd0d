package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bloomlabs/bloom/internal/common"
)

// Every response uses the same envelope: {"data": ...} on success,
// {"data": null, "errors": [{"message", "extensions": {"code"}}]} on failure.

type envelope struct {
	Data   any        `json:"data"`
	Errors []apiError `json:"errors,omitempty"`
}

type apiError struct {
	Message    string        `json:"message"`
	Extensions apiExtensions `json:"extensions"`
}

type apiExtensions struct {
	Code string `json:"code"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		h.logger.Error(context.Background(), "httpapi: encoding response", "error", err)
	}
}

// respondError maps a service error to a status and a stable machine code.
// Unknown errors become an opaque 500: the detail goes to the log, never to
// the client.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"

	switch {
	case errors.Is(err, common.ErrInvalidEmail),
		errors.Is(err, common.ErrInvalidUsername),
		errors.Is(err, common.ErrInvalidNamespace),
		errors.Is(err, common.ErrInvalidName),
		errors.Is(err, common.ErrInvalidDescription),
		errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, common.ErrInvalidCode),
		errors.Is(err, common.ErrTooManyAttempts),
		errors.Is(err, common.ErrCodeExpired),
		errors.Is(err, common.ErrSomeUsersNotFound),
		errors.Is(err, common.ErrMembersLimitReached),
		errors.Is(err, common.ErrAtLeastOneAdminMustRemainInGroup):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()

	case errors.Is(err, common.ErrAuthenticationRequired),
		errors.Is(err, common.ErrInvalidSession):
		status, code, message = http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", err.Error()

	case errors.Is(err, common.ErrPermissionDenied),
		errors.Is(err, common.ErrMustNotBeAuthenticated),
		errors.Is(err, common.ErrUserBlocked),
		errors.Is(err, common.ErrTwoFaNotEnabled),
		errors.Is(err, common.ErrTwoFaAlreadyEnabled):
		status, code, message = http.StatusForbidden, "PERMISSION_DENIED", err.Error()

	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrSessionNotFound),
		errors.Is(err, common.ErrGroupNotFound),
		errors.Is(err, common.ErrInvitationNotFound),
		errors.Is(err, common.ErrMemberNotFound),
		errors.Is(err, common.ErrNamespaceNotFound),
		errors.Is(err, common.ErrPendingEmailNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()

	case errors.Is(err, common.ErrEmailAlreadyExists),
		errors.Is(err, common.ErrUsernameAlreadyExists),
		errors.Is(err, common.ErrNamespaceAlreadyExists):
		status, code, message = http.StatusConflict, "ALREADY_EXISTS", err.Error()

	default:
		h.logger.Error(r.Context(), "httpapi: internal error",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(envelope{
		Errors: []apiError{{Message: message, Extensions: apiExtensions{Code: code}}},
	})
	if encodeErr != nil {
		h.logger.Error(r.Context(), "httpapi: encoding error response", "error", encodeErr)
	}
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrInvalidArgument
	}
	return nil
}

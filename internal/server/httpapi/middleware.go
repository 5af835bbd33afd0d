package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/server/services"
	"github.com/google/uuid"
)

type contextKey int

const actorKey contextKey = iota

// actorFromContext returns the Actor the middleware resolved. A request that
// never went through the middleware is an anonymous-less, user-less Actor.
func actorFromContext(ctx context.Context) services.Actor {
	if actor, ok := ctx.Value(actorKey).(services.Actor); ok {
		return actor
	}
	return services.Actor{}
}

// withActor resolves the caller once per request: a Bearer session token
// becomes a user Actor, the anonymous id header a visitor Actor. An invalid
// token fails the request instead of downgrading it to anonymous.
func (h *Handler) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := services.Actor{}

		if authorization := r.Header.Get("Authorization"); authorization != "" {
			token, ok := strings.CutPrefix(authorization, "Bearer ")
			if !ok {
				h.respondError(w, r, common.ErrInvalidSession)
				return
			}

			user, _, err := h.users.DecodeAndValidateSessionToken(r.Context(), token)
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			actor.User = user
		} else if anonymousID := r.Header.Get("X-Bloom-Anonymous-Id"); anonymousID != "" {
			if id, err := uuid.Parse(anonymousID); err == nil {
				actor.AnonymousID = &id
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), actorFromContext(r.Context()), req.Name, req.Path, req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroup(group))
}

func (h *Handler) findMyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.FindMyGroups(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroups(groups))
}

func (h *Handler) findGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	group, err := h.groups.FindGroup(r.Context(), actorFromContext(r.Context()), groupID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroup(group))
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), actorFromContext(r.Context()), groupID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) findGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	members, err := h.groups.FindGroupMembers(r.Context(), actorFromContext(r.Context()), groupID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroupMembers(members))
}

func (h *Handler) removeMemberFromGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	err = h.groups.RemoveMemberFromGroup(r.Context(), actorFromContext(r.Context()), groupID, chi.URLParam(r, "username"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) quitGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.groups.QuitGroup(r.Context(), actorFromContext(r.Context()), groupID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

type invitePeopleRequest struct {
	Usernames []string `json:"usernames"`
}

func (h *Handler) invitePeopleInGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuidParam(r, "groupID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req invitePeopleRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	invitations, err := h.groups.InvitePeopleInGroup(r.Context(), actorFromContext(r.Context()), groupID, req.Usernames)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroupInvitations(invitations))
}

func (h *Handler) findMyGroupInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.groups.FindMyGroupInvitations(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, toAPIGroupInvitations(invitations))
}

func (h *Handler) acceptGroupInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.groups.AcceptGroupInvitation(r.Context(), actorFromContext(r.Context()), invitationID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) declineGroupInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.groups.DeclineGroupInvitation(r.Context(), actorFromContext(r.Context()), invitationID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) cancelGroupInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.groups.CancelGroupInvitation(r.Context(), actorFromContext(r.Context()), invitationID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, nil)
}

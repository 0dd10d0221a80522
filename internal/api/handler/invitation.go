package handler

import (
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// InvitationHandler handles invitation endpoints
type InvitationHandler struct {
	invitationService *service.InvitationService
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// List returns invitations newest first
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.InvitationFilter{
		Role:   domain.Role(q.Get("role")),
		Status: domain.InvitationStatus(q.Get("status")),
		Search: q.Get("search"),
	}

	invitations, err := h.invitationService.ListInvitations(r.Context(), workspaceID, identity.UserID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, invitations)
}

// Create invites an email address
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	var input domain.InvitationCreate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	invitation, err := h.invitationService.CreateInvitation(r.Context(), workspaceID, identity.UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, invitation)
}

// Get returns one invitation
func (h *InvitationHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	invitation, err := h.invitationService.GetInvitation(r.Context(), workspaceID, identity.UserID, invitationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, invitation)
}

// Accept joins the workspace as the authenticated invitee
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.invitationService.AcceptInvitation(r.Context(), workspaceID, invitationID, identity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, member)
}

// Reject declines an invitation as the authenticated invitee
func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	invitation, err := h.invitationService.RejectInvitation(r.Context(), workspaceID, invitationID, identity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, invitation)
}

// Revoke withdraws a pending invitation
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	invitation, err := h.invitationService.RevokeInvitation(r.Context(), workspaceID, identity.UserID, invitationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, invitation)
}

// Resend replaces a pending invitation with a fresh one
func (h *InvitationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	invitationID, err := uuidParam(r, "invitationID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	invitation, err := h.invitationService.ResendInvitation(r.Context(), workspaceID, identity.UserID, invitationID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, invitation)
}

package handler

import (
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// MemberHandler handles membership endpoints
type MemberHandler struct {
	membershipService *service.MembershipService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(membershipService *service.MembershipService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService}
}

// List returns members filtered by the role, status and search query parameters
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.MemberFilter{
		Role:   domain.Role(q.Get("role")),
		Status: domain.MemberStatus(q.Get("status")),
		Search: q.Get("search"),
	}

	members, err := h.membershipService.ListMembers(r.Context(), workspaceID, identity.UserID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, members)
}

// Add adds a member directly
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	var input domain.MemberCreate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.membershipService.AddMember(r.Context(), workspaceID, identity.UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, member)
}

// UpdateRole changes a member's role
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	memberID, err := uuidParam(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input domain.RoleUpdate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.membershipService.UpdateRole(r.Context(), workspaceID, identity.UserID, memberID, input.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, member)
}

// UpdateStatus activates or deactivates a member
func (h *MemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	memberID, err := uuidParam(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input domain.StatusUpdate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.membershipService.SetMemberStatus(r.Context(), workspaceID, identity.UserID, memberID, input.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, member)
}

// Approve admits a member awaiting approval
func (h *MemberHandler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	memberID, err := uuidParam(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.membershipService.ApproveMember(r.Context(), workspaceID, identity.UserID, memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, member)
}

// Remove removes a member. Members may remove themselves.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	memberID, err := uuidParam(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.membershipService.RemoveMember(r.Context(), workspaceID, identity.UserID, memberID); err != nil {
		writeError(w, r, err)
		return
	}

	response.NoContent(w)
}

// TransferOwnership hands the owner role to another member
func (h *MemberHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}
	memberID, err := uuidParam(r, "memberID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.membershipService.TransferOwnership(r.Context(), workspaceID, identity.UserID, memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, member)
}

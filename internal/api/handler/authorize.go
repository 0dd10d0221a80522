package handler

import (
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// AuthorizationHandler answers permission questions
type AuthorizationHandler struct {
	authorizationService *service.AuthorizationService
}

// NewAuthorizationHandler creates a new authorization handler
func NewAuthorizationHandler(authorizationService *service.AuthorizationService) *AuthorizationHandler {
	return &AuthorizationHandler{authorizationService: authorizationService}
}

// Can reports whether the caller may perform ?action=category.capability
func (h *AuthorizationHandler) Can(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	action, err := domain.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	allowed, err := h.authorizationService.Can(r.Context(), workspaceID, identity.UserID, action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, map[string]any{
		"action":  action.String(),
		"allowed": allowed,
	})
}

// Permissions returns the caller's membership and effective matrix
func (h *AuthorizationHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	perms, err := h.authorizationService.Permissions(r.Context(), workspaceID, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, perms)
}

// Roles lists every role with its permission matrix, highest rank first
func Roles(w http.ResponseWriter, r *http.Request) {
	type roleInfo struct {
		Role        domain.Role             `json:"role"`
		Rank        int                     `json:"rank"`
		Permissions domain.PermissionMatrix `json:"permissions"`
	}

	roles := make([]roleInfo, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		matrix, err := domain.PermissionsFor(role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		roles = append(roles, roleInfo{Role: role, Rank: role.Rank(), Permissions: matrix})
	}

	response.OK(w, roles)
}

package handler

import (
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/middleware"
	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// WorkspaceHandler handles workspace endpoints
type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaceService *service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// Create handles workspace creation. The caller becomes its owner.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WorkspaceCreate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	workspace, err := h.workspaceService.Create(r.Context(), identity, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, workspace)
}

// List handles listing user's workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	workspaces, err := h.workspaceService.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, workspaces)
}

// Get handles getting a workspace by ID
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetByID(r.Context(), identity.UserID, workspaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, workspace)
}

package handler

import (
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// SettingsHandler handles workspace policy endpoints
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	settings, err := h.settingsService.GetSettings(r.Context(), workspaceID, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, settings)
}

// Update applies a partial settings update
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	var input domain.SettingsUpdate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	settings, err := h.settingsService.UpdateSettings(r.Context(), workspaceID, identity.UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, settings)
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

// ActivityHandler handles audit log endpoints
type ActivityHandler struct {
	activityService *service.ActivityService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List pages through the audit log with the cursor and limit query parameters
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: limit must be a number", domain.ErrInvalidInput))
			return
		}
		limit = n
	}

	page, err := h.activityService.List(r.Context(), workspaceID, identity.UserID, q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.OK(w, page)
}

// Record appends an activity reported by a client
func (h *ActivityHandler) Record(w http.ResponseWriter, r *http.Request) {
	identity, workspaceID, ok := caller(w, r)
	if !ok {
		return
	}

	var input domain.ActivityCreate
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	record, err := h.activityService.Record(r.Context(), workspaceID, identity.UserID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response.Created(w, record)
}

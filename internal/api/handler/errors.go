package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/workspace-access/internal/api/middleware"
	"github.com/Rrens/workspace-access/internal/api/response"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrUnknownRole, http.StatusBadRequest, "unknown_role"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrOwnerImmutable, http.StatusConflict, "owner_immutable"},
	{domain.ErrDuplicateMember, http.StatusConflict, "duplicate_member"},
	{domain.ErrAlreadyMember, http.StatusConflict, "already_member"},
	{domain.ErrDuplicatePendingInvite, http.StatusConflict, "duplicate_pending_invite"},
	{domain.ErrInvitationNotPending, http.StatusConflict, "invitation_not_pending"},
	{domain.ErrInvitationExpired, http.StatusGone, "invitation_expired"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
}

// writeError maps service failures to HTTP responses. Anything that is not
// a known failure is logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Coded(w, m.status, m.code, err.Error())
			return
		}
	}

	log.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	response.Coded(w, http.StatusInternalServerError, "internal", "internal server error")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, name)
	}
	return id, nil
}

// caller returns the authenticated identity and the workspace from the route
func caller(w http.ResponseWriter, r *http.Request) (domain.Identity, uuid.UUID, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return domain.Identity{}, uuid.Nil, false
	}
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.BadRequest(w, "missing workspace ID")
		return domain.Identity{}, uuid.Nil, false
	}
	return identity, workspaceID, true
}

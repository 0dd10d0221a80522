package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/workspace-access/internal/domain"
)

// Toucher records member activity
type Toucher interface {
	Touch(ctx context.Context, workspaceID, userID uuid.UUID) error
}

// Touch marks the caller as recently active in the workspace before the
// request is served. Callers that are not members pass through untouched.
func Touch(toucher Toucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			workspaceID, wsOK := GetWorkspaceID(r.Context())
			if ok && wsOK {
				if err := toucher.Touch(r.Context(), workspaceID, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
					log.Warn().Err(err).
						Str("workspace_id", workspaceID.String()).
						Str("user_id", userID.String()).
						Msg("failed to record member activity")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

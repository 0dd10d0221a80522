package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/workspace-access/internal/api/response"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck reports ready only when every dependency answers
func ReadyCheck(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := map[string]string{}
		for name, dep := range deps {
			if err := dep.Ping(r.Context()); err != nil {
				failed[name] = err.Error()
			}
		}

		if len(failed) > 0 {
			response.Error(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"failed": failed,
			})
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/workspace-access/internal/api/handler"
	customMiddleware "github.com/Rrens/workspace-access/internal/api/middleware"
	"github.com/Rrens/workspace-access/internal/config"
	"github.com/Rrens/workspace-access/internal/security"
	"github.com/Rrens/workspace-access/internal/service"
)

// Services are the collaborators the HTTP layer serves
type Services struct {
	Auth          *service.AuthService
	Workspaces    *service.WorkspaceService
	Members       *service.MembershipService
	Invitations   *service.InvitationService
	Settings      *service.SettingsService
	Activity      *service.ActivityService
	Authorization *service.AuthorizationService
}

// Options carries optional router dependencies
type Options struct {
	// RateLimiter is skipped when nil
	RateLimiter customMiddleware.Limiter
	// Ready lists the dependencies the readiness probe pings
	Ready map[string]handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, jwtManager *security.JWTManager, svc Services, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.WriteTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := handler.NewAuthHandler(svc.Auth)
	workspaceHandler := handler.NewWorkspaceHandler(svc.Workspaces)
	memberHandler := handler.NewMemberHandler(svc.Members)
	invitationHandler := handler.NewInvitationHandler(svc.Invitations)
	settingsHandler := handler.NewSettingsHandler(svc.Settings)
	activityHandler := handler.NewActivityHandler(svc.Activity)
	authorizationHandler := handler.NewAuthorizationHandler(svc.Authorization)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(opts.Ready))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if opts.RateLimiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(opts.RateLimiter).Limit)
			}

			r.Get("/me", authHandler.Me)
			r.Get("/roles", handler.Roles)

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaceHandler.List)
				r.Post("/", workspaceHandler.Create)

				r.Route("/{workspaceID}", func(r chi.Router) {
					r.Use(customMiddleware.WorkspaceContext)
					r.Use(customMiddleware.Touch(svc.Members))

					r.Get("/", workspaceHandler.Get)
					r.Get("/permissions", authorizationHandler.Permissions)
					r.Get("/can", authorizationHandler.Can)

					r.Get("/settings", settingsHandler.Get)
					r.Patch("/settings", settingsHandler.Update)

					r.Get("/activity", activityHandler.List)
					r.Post("/activity", activityHandler.Record)

					r.Route("/members", func(r chi.Router) {
						r.Get("/", memberHandler.List)
						r.Post("/", memberHandler.Add)

						r.Route("/{memberID}", func(r chi.Router) {
							r.Delete("/", memberHandler.Remove)
							r.Patch("/role", memberHandler.UpdateRole)
							r.Patch("/status", memberHandler.UpdateStatus)
							r.Post("/approve", memberHandler.Approve)
							r.Post("/transfer-ownership", memberHandler.TransferOwnership)
						})
					})

					r.Route("/invitations", func(r chi.Router) {
						r.Get("/", invitationHandler.List)
						r.Post("/", invitationHandler.Create)

						r.Route("/{invitationID}", func(r chi.Router) {
							r.Get("/", invitationHandler.Get)
							r.Post("/accept", invitationHandler.Accept)
							r.Post("/reject", invitationHandler.Reject)
							r.Post("/revoke", invitationHandler.Revoke)
							r.Post("/resend", invitationHandler.Resend)
						})
					})
				})
			})
		})
	})

	return r
}

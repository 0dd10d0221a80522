package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rrens/workspace-access/internal/api"
	"github.com/Rrens/workspace-access/internal/api/handler"
	"github.com/Rrens/workspace-access/internal/config"
	"github.com/Rrens/workspace-access/internal/domain"
	"github.com/Rrens/workspace-access/internal/logger"
	"github.com/Rrens/workspace-access/internal/repository/memory"
	"github.com/Rrens/workspace-access/internal/repository/mongo"
	"github.com/Rrens/workspace-access/internal/repository/postgres"
	"github.com/Rrens/workspace-access/internal/repository/redis"
	"github.com/Rrens/workspace-access/internal/repository/sqlite"
	"github.com/Rrens/workspace-access/internal/security"
	"github.com/Rrens/workspace-access/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	envLoaded := ""
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			envLoaded = p
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if envLoaded != "" {
		log.Info().Str("path", envLoaded).Msg("loaded .env")
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", cfg.Server.Addr()).
		Str("driver", cfg.Database.Driver).
		Msg("Starting workspace access server")

	clock := clockwork.NewRealClock()
	ready := map[string]handler.Pinger{}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	ready["store"] = store

	var (
		notifier    domain.Notifier = service.NewLogNotifier()
		rateLimiter *redis.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		ready["redis"] = redisClient

		notifier = redis.NewStreamNotifier(redisClient, cfg.Notifications.Stream, cfg.Notifications.MaxLength)
		rateLimiter = redis.NewRateLimiter(redisClient, clock,
			cfg.Security.RateLimit.RequestsPerMinute, cfg.Security.RateLimit.Burst)
	}

	var archive domain.ActivityArchive
	if cfg.Archive.Enabled {
		mongoArchive, err := mongo.NewArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer mongoArchive.Close()
		ready["archive"] = mongoArchive
		archive = mongoArchive
	}

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authorizer := service.NewAuthorizer()
	auditor := service.NewAuditor(clock, archive)
	invitations := service.NewInvitationService(store, authorizer, auditor, notifier, clock, cfg.Invitations.TTL)

	svc := api.Services{
		Auth:          service.NewAuthService(store.Users(), jwtManager, clock),
		Workspaces:    service.NewWorkspaceService(store, auditor, clock),
		Members:       service.NewMembershipService(store, authorizer, auditor, clock),
		Invitations:   invitations,
		Settings:      service.NewSettingsService(store, authorizer, auditor, clock),
		Activity:      service.NewActivityService(store, auditor),
		Authorization: service.NewAuthorizationService(store, authorizer),
	}
	opts := api.Options{Ready: ready}
	if rateLimiter != nil {
		opts.RateLimiter = rateLimiter
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(cfg, jwtManager, svc, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return service.NewExpirySweeper(invitations, clock, cfg.Invitations.SweepInterval).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (domain.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DSN()); err != nil {
				return nil, err
			}
		}
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := sqlite.RunMigrations(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlite.NewStore(db), nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; state is lost on restart")
		return memory.NewStore(), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

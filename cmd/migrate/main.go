package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/workspace-access/internal/config"
	"github.com/Rrens/workspace-access/internal/logger"
	"github.com/Rrens/workspace-access/internal/repository/postgres"
	"github.com/Rrens/workspace-access/internal/repository/sqlite"
)

func main() {
	command := flag.String("command", "up", "migration command: up, down or version")
	steps := flag.Int("steps", 1, "number of migrations to revert with down")
	driver := flag.String("driver", "", "override database.driver (postgres or sqlite)")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}

	if _, err := logger.Setup(config.LoggingConfig{Level: cfg.Logging.Level, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		err = migratePostgres(cfg.Database.DSN(), *command, *steps)
	case config.DriverSQLite:
		err = migrateSQLite(cfg.Database.SQLitePath, *command)
	default:
		err = fmt.Errorf("driver %q has no schema to migrate", cfg.Database.Driver)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func migratePostgres(dsn, command string, steps int) error {
	log.Info().Str("command", command).Msg("running postgres migration")

	switch command {
	case "up":
		return postgres.RunMigrations(dsn)
	case "down":
		if steps < 1 {
			return fmt.Errorf("steps must be positive, got %d", steps)
		}
		return postgres.RollbackMigrations(dsn, steps)
	case "version":
		version, dirty, err := postgres.MigrationVersion(dsn)
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current schema version")
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func migrateSQLite(path, command string) error {
	if command != "up" {
		return fmt.Errorf("sqlite supports only the up command, got %q", command)
	}

	db, err := sqlite.Open(context.Background(), path)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Str("path", path).Msg("running sqlite migration")
	return sqlite.RunMigrations(db)
}

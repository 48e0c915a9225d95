package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/booking-page-studio/internal/config"
	"github.com/wolfman30/booking-page-studio/migrations"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

const usage = "usage: migrate [up | down [steps] | version | force <version>]"

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, closeAll, err := openMigrator(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open migrator", "error", err)
		os.Exit(1)
	}

	err = run(m, os.Args[1:], logger)
	closeAll()
	if err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

// openMigrator wires the embedded booking page schema to the database.
func openMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "booking_page_schema_migrations"})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: create migrator: %w", err)
	}
	return m, func() {
		_, _ = m.Close()
		_ = db.Close()
	}, nil
}

// run executes one subcommand. No arguments means up.
func run(m migrator, args []string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("booking page schema already current")
				return nil
			}
			return fmt.Errorf("migrate: up: %w", err)
		}
		return logVersion(m, logger, "migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("migrate: down: invalid step count %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate: down %d: %w", steps, err)
		}
		return logVersion(m, logger, "migrations rolled back")

	case "version":
		return logVersion(m, logger, "booking page schema version")

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("migrate: force: version required (%s)", usage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("migrate: force: invalid version %q", args[1])
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migrate: force %d: %w", version, err)
		}
		logger.Warn("schema version forced", "version", version)
		return nil

	default:
		return fmt.Errorf("migrate: unknown command %q (%s)", cmd, usage)
	}
}

func logVersion(m migrator, logger *logging.Logger, msg string) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info(msg, "version", "none")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: version: %w", err)
	}
	logger.Info(msg, "version", version, "dirty", dirty)
	return nil
}

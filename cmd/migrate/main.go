// Command migrate manages the warehouse database schema.
//
// Usage:
//
//	migrate -cmd up                  apply all pending migrations
//	migrate -cmd down                roll back all migrations
//	migrate -cmd step -n -1          roll back one migration
//	migrate -cmd version             print current schema version
//	migrate -cmd force -n 3          repair a dirty state at version 3
//	migrate -cmd create -name x      create an empty migration pair
//	migrate -cmd list                list available migrations
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/clinic/backend/internal/infrastructure/logger"
	"github.com/clinic/backend/internal/infrastructure/migration"
)

func main() {
	var (
		command        = flag.String("cmd", "", "migration command: up, down, step, version, force, create, list")
		steps          = flag.Int("n", 0, "number of steps (step) or target version (force)")
		name           = flag.String("name", "", "migration name (create)")
		migrationsPath = flag.String("path", "migrations", "path to migrations directory")
	)
	flag.Parse()

	if *command == "" {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	// create and list work without a database connection
	switch *command {
	case "create":
		if *name == "" {
			log.Error("migration name is required, use -name")
			os.Exit(2)
		}
		mf, err := migration.CreateMigration(*migrationsPath, *name)
		if err != nil {
			log.Error("Failed to create migration", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Created migration",
			zap.String("up", mf.UpPath),
			zap.String("down", mf.DownPath),
		)
		return
	case "list":
		names, err := migration.ListMigrations(*migrationsPath)
		if err != nil {
			log.Error("Failed to list migrations", zap.Error(err))
			os.Exit(1)
		}
		if len(names) == 0 {
			log.Info("No migrations found", zap.String("path", *migrationsPath))
			return
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.Error(err),
		)
		os.Exit(1)
	}

	migrator, err := migration.New(db, *migrationsPath, log)
	if err != nil {
		log.Error("Failed to create migrator", zap.Error(err))
		os.Exit(1)
	}
	defer migrator.Close() //nolint:errcheck

	switch *command {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "step":
		if *steps == 0 {
			log.Error("step count is required, use -n")
			os.Exit(2)
		}
		err = migrator.Steps(*steps)
	case "version":
		version, dirty, verr := migrator.Version()
		if verr != nil {
			err = verr
			break
		}
		log.Info("Current schema version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	case "force":
		err = migrator.Force(*steps)
	default:
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		log.Error("Migration command failed",
			zap.String("command", *command),
			zap.Error(err),
		)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `migrate - warehouse schema migration tool

Commands:
  -cmd up                   apply all pending migrations
  -cmd down                 roll back all migrations
  -cmd step -n <n>          apply n migrations (negative rolls back)
  -cmd version              print current schema version
  -cmd force -n <version>   set version without running migrations
  -cmd create -name <name>  create an empty up/down migration pair
  -cmd list                 list available migrations

Flags:
  -path <dir>               migrations directory (default "migrations")`)
}

// Package main is the entry point for the Meridian database migration tool.
// It manages the SQLite schema used by the back-office server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/config"
	"github.com/meridian-motors/meridian-backoffice/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	switch command {
	case "version":
		fmt.Printf("Meridian Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := runUp(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		if err := runStatus(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runUp applies all pending migrations.
func runUp(configPath string) error {
	ctx := context.Background()
	db, logger, err := openDB(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info().Msg("migrations applied")
	return nil
}

// runStatus prints the current schema version.
func runStatus(configPath string) error {
	ctx := context.Background()
	db, _, err := openDB(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var version int
	err = db.DB().QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		// The migrations table does not exist on a fresh database.
		fmt.Println("schema version: 0 (no migrations applied)")
		return nil
	}

	fmt.Printf("schema version: %d\n", version)
	return nil
}

func openDB(ctx context.Context, configPath string) (*sqlite.DB, zerolog.Logger, error) {
	cfg := config.MustLoad(configPath)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if cfg.Database.Driver != "sqlite" {
		return nil, logger, fmt.Errorf("database driver %q is not supported by this tool; use sqlite", cfg.Database.Driver)
	}

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
	if err != nil {
		return nil, logger, fmt.Errorf("failed to open database: %w", err)
	}
	return db, logger, nil
}

func printUsage() {
	fmt.Println(`Meridian Migration Tool

Usage:
  meridian-migrate [-config path] <command>

Commands:
  up          Run all pending migrations
  status      Show current schema version
  version     Print version information
  help        Show this help message

The database path comes from the config file or the MERIDIAN_DATABASE_PATH
environment variable.

Examples:
  meridian-migrate -config configs/config.yaml up
  meridian-migrate status`)
}

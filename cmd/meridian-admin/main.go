// Package main is the entry point for the Meridian admin CLI.
// It provides out-of-band administrative commands, most importantly creating
// the first ADMIN account before the HTTP API has anyone who can log in.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/meridian-motors/meridian-backoffice/internal/auth"
	"github.com/meridian-motors/meridian-backoffice/internal/config"
	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/repository/sqlite"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
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
		fmt.Printf("Meridian Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUser(*configPath, flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
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

// runUser dispatches user subcommands.
func runUser(configPath string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: meridian-admin user <create|list>")
	}

	switch args[0] {
	case "create":
		return runUserCreate(configPath, args[1:])
	case "list":
		return runUserList(configPath)
	default:
		return fmt.Errorf("unknown user subcommand %q", args[0])
	}
}

func runUserCreate(configPath string, args []string) error {
	fs := flag.NewFlagSet("user create", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	role := fs.String("role", string(domain.RoleAdmin), "account role (ADMIN or USER)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-username is required")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	ctx := context.Background()
	users, db, err := openUserService(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := users.Register(ctx, service.RegisterInput{
		Username: *username,
		Password: password,
		Role:     domain.Role(*role),
	})
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (id=%d, role=%s)\n", user.Username, user.ID, user.Role)
	return nil
}

func runUserList(configPath string) error {
	ctx := context.Background()
	users, db, err := openUserService(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := users.List(ctx, repository.ListOptions{})
	if err != nil {
		return err
	}

	for _, u := range result.Items {
		fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format(time.RFC3339))
	}
	fmt.Printf("%d user(s)\n", result.Total)
	return nil
}

// readPassword prompts twice on the terminal without echoing.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func openUserService(ctx context.Context, configPath string) (*service.UserService, *sqlite.DB, error) {
	cfg := config.MustLoad(configPath)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()

	if cfg.Database.Driver != "sqlite" {
		return nil, nil, fmt.Errorf("database driver %q is not supported by this tool; use sqlite", cfg.Database.Driver)
	}

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := sqlite.NewRepositories(db)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	return service.NewUserService(repos.User, hasher, tokens, logger), db, nil
}

func printUsage() {
	fmt.Println(`Meridian Admin CLI

Usage:
  meridian-admin [-config path] <command> [arguments]

Commands:
  user create -username <name> [-role ADMIN|USER]
              Create an account, prompting for the password
  user list   List all accounts
  version     Print version information
  help        Show this help message

Examples:
  meridian-admin -config configs/config.yaml user create -username root
  meridian-admin user list`)
}

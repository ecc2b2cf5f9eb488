package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"plan-ledger.backend/internal/config"
	"plan-ledger.backend/internal/domain/entities"
	domainerrors "plan-ledger.backend/internal/domain/errors"
	"plan-ledger.backend/internal/infrastructure/datasources/postgres"
	"plan-ledger.backend/internal/infrastructure/repositories"
)

var openPromoteDB = postgres.NewConnection

var openPromoteSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

// promoteRuntime is the slice of the account store the command needs.
type promoteRuntime interface {
	GetByEmail(ctx context.Context, email string) (*entities.Account, error)
	PromoteFirstAdmin(ctx context.Context, id uuid.UUID) (*entities.Account, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.AccountPatch) (*entities.Account, error)
}

type promoteDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (promoteRuntime, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultPromoteDeps() promoteDeps {
	return promoteDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (promoteRuntime, io.Closer, error) {
			db, err := openPromoteDB(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openPromoteSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}
			return repositories.NewAccountRepository(db), sqlDB, nil
		},
		out: os.Stdout,
	}
}

func parseEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("--email is required")
	}
	return email, nil
}

// runAdminPromote grants the admin role by email. Without --force it only
// succeeds while no admin exists, the same rule the HTTP bootstrap follows.
func runAdminPromote(args []string, deps promoteDeps) error {
	def := defaultPromoteDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("admin-promote", flag.ContinueOnError)
	emailFlag := fs.String("email", "", "email of the account to promote (required)")
	forceFlag := fs.Bool("force", false, "promote even when an admin already exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email, err := parseEmail(*emailFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	runtime, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	ctx := context.Background()
	account, err := runtime.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", email, err)
	}
	if account.IsAdmin() {
		_, _ = fmt.Fprintf(deps.out, "account %s is already ADMIN\n", account.ID)
		return nil
	}

	if *forceFlag {
		role := entities.RoleAdmin
		account, err = runtime.Update(ctx, account.ID, entities.AccountPatch{Role: &role})
	} else {
		account, err = runtime.PromoteFirstAdmin(ctx, account.ID)
		if errors.Is(err, domainerrors.ErrAdminAlreadyExists) {
			return fmt.Errorf("an admin already exists; rerun with --force to grant another")
		}
	}
	if err != nil {
		return fmt.Errorf("failed promoting %s: %w", email, err)
	}

	_, _ = fmt.Fprintln(deps.out, "Promoted account to ADMIN")
	_, _ = fmt.Fprintf(deps.out, "account_id=%s\n", account.ID)
	_, _ = fmt.Fprintf(deps.out, "email=%s\n", account.Email)
	return nil
}

func main() {
	if err := runAdminPromote(os.Args[1:], defaultPromoteDeps()); err != nil {
		log.Fatal(err)
	}
}

// Package main provisions the initial administrator account. It is a
// one-shot command: if the account already exists nothing is changed.
//
// Usage:
//
//	ADMIN_USERNAME=admin ADMIN_PASSWORD='S3cure-Pass!' go run ./cmd/createadmin
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/erickdv/guardia/internal/auth"
	"github.com/erickdv/guardia/internal/config"
	"github.com/erickdv/guardia/internal/database"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		slog.Error("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
		os.Exit(1)
	}

	if !auth.ValidPassword(password) {
		slog.Error("admin password does not meet the password policy")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := auth.NewAccountRepository(db)

	exists, err := repo.UsernameExists(ctx, username)
	if err != nil {
		slog.Error("failed to check for existing account", slog.Any("error", err))
		os.Exit(1)
	}
	if exists {
		slog.Info("administrator account already exists", slog.String("username", username))
		return
	}

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(password)
	if err != nil {
		slog.Error("failed to hash password", slog.Any("error", err))
		os.Exit(1)
	}

	account := &auth.Account{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.Create(ctx, account); err != nil {
		slog.Error("failed to create administrator account", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("administrator account created", slog.String("username", username))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/accentry/account-service/config"
	"github.com/accentry/account-service/internal/domain/entity"
	pginfra "github.com/accentry/account-service/internal/infrastructure/postgres"
	"github.com/accentry/account-service/pkg/helpers"
)

// Seeds a demo account for local development. Safe to run repeatedly.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	username := "demo"
	email := "demo@example.com"
	password := "Password123"

	account, err := entity.NewAccount(username, email)
	if err != nil {
		log.Fatalf("invalid seed identity: %v", err)
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	if err := account.SetPassword(hash); err != nil {
		log.Fatalf("failed to set password: %v", err)
	}

	uow, err := pginfra.NewUnitOfWorkFactory(pool).Begin(ctx)
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	if err := uow.Accounts().Create(ctx, account); err != nil {
		_ = uow.Rollback(ctx)
		if errors.Is(err, entity.ErrUsernameAlreadyExists) || errors.Is(err, entity.ErrEmailAlreadyExists) {
			fmt.Printf("seed account already present: username=%s\n", username)
			return
		}
		log.Fatalf("failed to seed account: %v", err)
	}
	if err := uow.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	fmt.Printf("seeded account: id=%s username=%s password=%s\n", account.ID(), username, password)
}

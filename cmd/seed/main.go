package main

import (
	"context"
	"os"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	"storefront/internal/seed"
	usersvc "storefront/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("app", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	users := usersvc.New(userrepo.NewPostgres(pool, logger), cfg.JWTSecret, cfg.TokenTTL, logger)
	admin := seed.Admin{Name: cfg.AdminName, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger), users, admin, logger); err != nil {
		logger.Error("seed apply", "error", err)
		os.Exit(1)
	}

	logger.Info("seed applied")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	messagerepo "storefront/internal/repository/message"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	messagesvc "storefront/internal/service/message"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("app", "api")
	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the development default")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Error("connect to db", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", "error", err)
		}
	}()

	userService := usersvc.New(userrepo.NewPostgres(dbpool, logger), cfg.JWTSecret, cfg.TokenTTL, logger)
	orderService := ordersvc.New(
		orderrepo.NewPostgres(dbpool, logger),
		publisher,
		logger,
		ordersvc.WithStrictTransitions(cfg.StrictOrderTransitions),
	)
	productService := productsvc.New(productrepo.NewPostgres(dbpool, logger), logger)
	messageService := messagesvc.New(messagerepo.NewPostgres(dbpool, logger), logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Orders:             orderService,
		Users:              userService,
		Products:           productService,
		Messages:           messageService,
		Metrics:            metrics.New(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("server stopped")
	}
}

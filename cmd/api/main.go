package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medimart-health/medimart-backend/api/routes"
	"github.com/medimart-health/medimart-backend/internal/catalog"
	"github.com/medimart-health/medimart-backend/internal/notifications"
	"github.com/medimart-health/medimart-backend/internal/orders"
	"github.com/medimart-health/medimart-backend/pkg/auth"
	"github.com/medimart-health/medimart-backend/pkg/config"
	"github.com/medimart-health/medimart-backend/pkg/db"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/mailer"
	"github.com/medimart-health/medimart-backend/pkg/migrate"
	"github.com/medimart-health/medimart-backend/pkg/razorpay"
	"github.com/medimart-health/medimart-backend/pkg/redis"
	"github.com/medimart-health/medimart-backend/pkg/sms"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "medimart-backend",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "service exited", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if cfg.FeatureFlags.AutoMigrate {
		if err := migrate.Up(ctx, dbClient.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "migrations applied")
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	verifier, err := auth.NewVerifier(cfg.JWT)
	if err != nil {
		return err
	}

	gateway, err := razorpay.New(cfg.Razorpay)
	if err != nil {
		return err
	}

	notifRepo, err := notifications.NewRepo(dbClient.DB())
	if err != nil {
		return err
	}
	notifService, err := notifications.NewService(notifRepo)
	if err != nil {
		return err
	}

	dispatcherOpts := notifications.DispatcherOptions{
		InApp:   notifRepo,
		Users:   notifRepo,
		Logger:  logg,
		Timeout: cfg.Orders.SideEffectTimeout,
	}
	if cfg.Sendgrid.APIKey != "" {
		emailClient, err := mailer.New(cfg.Sendgrid)
		if err != nil {
			return err
		}
		dispatcherOpts.Email = emailClient
	} else {
		logg.Warn(ctx, "sendgrid not configured, email channel disabled")
	}
	if cfg.SMS.AccountSID != "" {
		smsClient, err := sms.New(cfg.SMS)
		if err != nil {
			return err
		}
		dispatcherOpts.SMS = smsClient
	} else {
		logg.Warn(ctx, "sms provider not configured, sms channel disabled")
	}
	dispatcher, err := notifications.NewDispatcher(dispatcherOpts)
	if err != nil {
		return err
	}

	catalogRepo, err := catalog.NewRepo(dbClient.DB())
	if err != nil {
		return err
	}
	ordersRepo, err := orders.NewRepo(dbClient.DB())
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orders.ServiceOptions{
		Tx:         dbClient,
		Orders:     ordersRepo,
		Stock:      catalogRepo,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Logger:     logg,
		Config:     cfg.Orders,
	})
	if err != nil {
		return err
	}

	handler := routes.New(routes.Deps{
		Logger:        logg,
		Verifier:      verifier,
		Orders:        ordersService,
		Notifications: notifService,
		DB:            dbClient,
		Redis:         redisClient,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "listening on "+server.Addr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		logg.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzpatryk/BuggyVege/internal/config"
	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/fulfillment"
	"github.com/rzpatryk/BuggyVege/internal/logger"
	"github.com/rzpatryk/BuggyVege/internal/metrics"
	"github.com/rzpatryk/BuggyVege/internal/server"
	"github.com/rzpatryk/BuggyVege/internal/server/router"
	"github.com/rzpatryk/BuggyVege/internal/settlement"
	"github.com/rzpatryk/BuggyVege/internal/storage"
	"github.com/rzpatryk/BuggyVege/internal/storage/inmemory"
	"github.com/rzpatryk/BuggyVege/internal/storage/pgstorage"
)

type Application struct {
	log         *slog.Logger
	storage     storage.Storage
	server      *server.Server
	fulfillment *fulfillment.Fulfillment
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logFormat, err := logger.ParseLogFormat(cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogFormat: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logFormat),
		logger.WithAddSource(false),
	)

	depositLimit, err := money.Parse(cfg.DepositLimit)
	if err != nil {
		return nil, fmt.Errorf("money.Parse: %w", err)
	}

	store, err := newStorage(cfg, logg)
	if err != nil {
		return nil, err
	}

	if err := seedAdmin(context.Background(), store, cfg.AdminEmail, cfg.AdminPassword, logg); err != nil {
		store.Close() //nolint:errcheck

		return nil, fmt.Errorf("seedAdmin: %w", err)
	}

	engine := settlement.New(store, store,
		settlement.WithLogger(logg),
		settlement.WithDepositLimit(depositLimit),
		settlement.WithRecorder(metrics.NewRecorder()),
	)

	r := router.NewRouter(store, engine,
		router.WithLogger(logg),
		router.WithSecret([]byte(cfg.JWTSecretKey)),
	)

	srv := server.NewServer(r,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithLogger(logg),
	)

	application := &Application{
		log:     logg,
		storage: store,
		server:  srv,
	}

	if cfg.FulfillmentURI != "" {
		application.fulfillment = fulfillment.NewFulfillment(store, engine,
			fulfillment.WithLogger(logg),
			fulfillment.WithFulfillmentURI(cfg.FulfillmentURI),
			fulfillment.WithPollInterval(cfg.FulfillmentPollInterval),
			fulfillment.WithWorkers(cfg.FulfillmentWorkers),
		)
	}

	return application, nil
}

// newStorage opens PostgreSQL when a database URI is configured and falls
// back to memory otherwise.
func newStorage(cfg config.Config, logg *slog.Logger) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		logg.Warn("DATABASE_URI is empty, using in-memory storage")

		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgstore.Bootstrap(ctx); err != nil {
		pgstore.Close() //nolint:errcheck

		return nil, fmt.Errorf("pgstore.Bootstrap: %w", err)
	}

	return storage.NewStorage(pgstore), nil
}

// seedAdmin makes sure the configured admin account exists.
func seedAdmin(ctx context.Context, store storage.UserStorage, email, password string, logg *slog.Logger) error {
	if email == "" || password == "" {
		return nil
	}

	admin, err := users.CreateUser(email, "Administrator", password)
	if err != nil {
		return fmt.Errorf("users.CreateUser: %w", err)
	}

	admin.Role = users.RoleAdmin

	if err := store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil
		}

		return fmt.Errorf("store.CreateUser: %w", err)
	}

	logg.Info("Admin account created", slog.String("email", admin.Email))

	return nil
}

func (a *Application) Run() error {
	defer a.storage.Close() //nolint:errcheck

	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.fulfillment != nil {
		go func() {
			if err := a.fulfillment.Run(ctx); err != nil {
				errChan <- fmt.Errorf("fulfillment.Run: %w", err)
			}
		}()
	}

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err

	case <-quit:
		a.log.Info("Gracefully shutting down application...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server.Shutdown: %w", err)
		}

		return nil
	}
}

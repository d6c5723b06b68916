// Package server wires and runs the auth stub: the user store, the token
// service and the HTTP API, stopped gracefully on SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/vutto/internal/logging"
	"github.com/dmitrijs2005/vutto/internal/server/api"
	"github.com/dmitrijs2005/vutto/internal/server/config"
	"github.com/dmitrijs2005/vutto/internal/server/storage"
	"github.com/dmitrijs2005/vutto/internal/server/users"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       storage.RepositoryManager
	userService *users.Service
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	rm, err := storage.NewRepositoryManager(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	us := users.NewService(rm.Users(), rm.Revocations(), c, logger.With("module", "users"))
	return &App{config: c, logger: logger, repos: rm, userService: us}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.repos.Close()

	app.logger.Info(ctx, "Starting app...",
		"require_verification", app.config.RequireVerification,
		"token_ttl", app.config.TokenTTL,
		"postgres", app.config.DatabaseDSN != "",
	)

	app.initSignalHandler(ctx, cancelFunc)

	s := api.NewServer(app.config.Addr, app.logger, app.userService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	return nil
}

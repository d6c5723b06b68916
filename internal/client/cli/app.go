package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/vutto/internal/client/client"
	"github.com/dmitrijs2005/vutto/internal/client/config"
	"github.com/dmitrijs2005/vutto/internal/client/credstore"
	"github.com/dmitrijs2005/vutto/internal/client/expiry"
	"github.com/dmitrijs2005/vutto/internal/client/registration"
	"github.com/dmitrijs2005/vutto/internal/client/session"
	"github.com/dmitrijs2005/vutto/internal/logging"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	store   credstore.Store
	gateway client.Client
	session *session.Controller
	flow    *registration.Flow
	reader  *bufio.Reader
	out     io.Writer

	// loggingOut is set while the user's own logout runs, so the session
	// watcher can tell it from a forced one.
	loggingOut atomic.Bool
}

// NewApp opens the configured credential store and wires the gateway, the
// session controller and the registration flow together.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	policy, err := expiry.New(c.GraceWindow, c.RenewWindow)
	if err != nil {
		return nil, err
	}

	store, err := credstore.Open(ctx, c.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	auth := client.NewAuthorizer(nil, policy, nil)
	gw, err := client.NewHTTPClient(c.ServerURL, auth, 0)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := assemble(c, log, store, gw, policy)
	a.session.Attach(auth)
	return a, nil
}

func assemble(c *config.Config, log logging.Logger, store credstore.Store, gw client.Client, policy *expiry.Policy) *App {
	ctrl := session.New(gw, store, session.Options{
		Policy:           policy,
		BootstrapTimeout: c.BootstrapTimeout,
		RenewInterval:    c.RenewInterval,
		Logger:           log.With("component", "session"),
	})
	flow := registration.New(gw, ctrl, registration.Options{
		CodeTTL: c.CodeTTL,
		Logger:  log.With("component", "registration"),
	})

	return &App{
		config:  c,
		log:     log,
		store:   store,
		gateway: gw,
		session: ctrl,
		flow:    flow,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close stops background work and releases the store and the gateway.
func (a *App) Close() error {
	a.session.Close()
	return errors.Join(a.gateway.Close(), a.store.Close())
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// report prints the outcome of a session or registration operation and
// turns a failure into an error for the REPL.
func (a *App) report(res session.Result, success string) error {
	if !res.Success {
		fmt.Fprintln(a.out, "Error:", res.Error)
		if res.Err != nil {
			return res.Err
		}
		return errors.New(res.Error)
	}
	if res.Warning != "" {
		fmt.Fprintln(a.out, "Warning:", res.Warning)
	}
	if success != "" {
		fmt.Fprintln(a.out, success)
	}
	return nil
}

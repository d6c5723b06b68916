package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/client"
	"github.com/dmitrijs2005/vutto/internal/client/credstore"
	"github.com/dmitrijs2005/vutto/internal/client/expiry"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/logging"
)

const (
	DefaultBootstrapTimeout = 5 * time.Second
	DefaultRenewInterval    = 5 * time.Minute
)

// Options tune a Controller. Zero values take the defaults.
type Options struct {
	Policy           *expiry.Policy
	BootstrapTimeout time.Duration
	// RenewInterval is the renewal tick period; negative disables the loop.
	RenewInterval time.Duration
	Logger        logging.Logger
}

// Controller is the single owner of the session state.
//
// Contract:
//   - Bootstrap: validate stored credentials once; later calls are no-ops.
//   - Login / Adopt: install a credential and enter Authenticated.
//   - Logout: best-effort remote logout, then always clear and enter Anonymous.
//   - ForceLogout: clear and enter Anonymous without calling the server.
//
// None of the operations returns a bare error or panics; failures come back
// in Result.
type Controller struct {
	gw     client.Client
	store  credstore.Store
	policy *expiry.Policy
	log    logging.Logger

	bootstrapTimeout time.Duration
	renewInterval    time.Duration

	// opMu serialises every evaluate, call, commit sequence.
	opMu        sync.Mutex
	stopRenewal context.CancelFunc
	closed      bool
	wg          sync.WaitGroup
	renewing    atomic.Bool

	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
}

func New(gw client.Client, store credstore.Store, opts Options) *Controller {
	c := &Controller{
		gw:               gw,
		store:            store,
		policy:           opts.Policy,
		log:              opts.Logger,
		bootstrapTimeout: opts.BootstrapTimeout,
		renewInterval:    opts.RenewInterval,
		subs:             make(map[chan State]struct{}),
	}
	if c.policy == nil {
		c.policy = expiry.Default()
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.bootstrapTimeout <= 0 {
		c.bootstrapTimeout = DefaultBootstrapTimeout
	}
	if c.renewInterval == 0 {
		c.renewInterval = DefaultRenewInterval
	}
	return c
}

// Attach makes a as the transport's authorization policy for this session:
// it reads the token from c, shares c's expiry policy and force-logs-out on
// a rejected authorised call.
func (c *Controller) Attach(a *client.Authorizer) {
	a.Tokens = c
	a.Policy = c.policy
	a.OnRejected = c.ForceLogout
}

// Policy returns the expiry policy shared with the transport.
func (c *Controller) Policy() *expiry.Policy { return c.policy }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Token is the credential the transport may attach: the session token when
// authenticated, the stored candidate while bootstrapping, "" otherwise.
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.state.Kind {
	case Authenticated, Bootstrapping:
		return c.state.Token
	default:
		return ""
	}
}

// IsAuthenticated reports Authenticated with a token still usable now.
func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()
	return st.Kind == Authenticated && c.policy.Usable(st.Token)
}

// CurrentUser returns a copy of the session profile, nil when anonymous.
func (c *Controller) CurrentUser() *models.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Kind != Authenticated {
		return nil
	}
	return c.state.Profile.Clone()
}

// Role returns the session user's role, "" when unknown.
func (c *Controller) Role() models.Role {
	if u := c.CurrentUser(); u != nil {
		return u.Role
	}
	return ""
}

func (c *Controller) IsSeller() bool {
	return c.Role() == models.RoleSeller
}

// Subscribe returns a channel that receives the state after every change,
// latest value wins, and a function that cancels the subscription.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
}

// transition commits next. Callers hold opMu.
func (c *Controller) transition(ctx context.Context, next State) error {
	c.mu.Lock()
	prev := c.state.Kind
	if !allowed(prev, next.Kind) {
		c.mu.Unlock()
		c.log.Error(ctx, "illegal session transition", "from", prev, "to", next.Kind)
		return ErrIllegalTransition
	}
	c.state = next
	for ch := range c.subs {
		publish(ch, next.clone())
	}
	c.mu.Unlock()

	if prev != next.Kind {
		c.log.Debug(ctx, "session state changed", "from", prev, "to", next.Kind)
	}

	switch {
	case next.Kind == Authenticated && prev != Authenticated:
		c.startRenewal()
	case next.Kind != Authenticated && prev == Authenticated:
		c.haltRenewal()
	}
	return nil
}

func publish(ch chan State, st State) {
	select {
	case <-ch:
	default:
	}
	ch <- st
}

// Bootstrap validates stored credentials. It runs once; later calls report
// the current state without doing anything.
func (c *Controller) Bootstrap(ctx context.Context) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.Snapshot().Kind != Unbootstrapped {
		return ok("")
	}

	token, stored, err := c.store.Get(ctx)
	if err != nil {
		c.log.Warn(ctx, "read stored credentials", "error", err)
		_ = c.transition(ctx, State{Kind: Anonymous})
		return ok(WarnNotRead)
	}
	if token == "" {
		_ = c.transition(ctx, State{Kind: Anonymous})
		return ok("")
	}

	usable := c.policy.Usable(token)
	remember := false
	if !usable {
		remember, err = c.store.RememberMe(ctx)
		if err != nil {
			c.log.Warn(ctx, "read remember-me flag", "error", err)
		}
		if !remember {
			c.log.Info(ctx, "stored credential expired")
			_ = c.transition(ctx, State{Kind: Anonymous})
			return ok("")
		}
	}

	if err := c.transition(ctx, State{Kind: Bootstrapping, Token: token}); err != nil {
		return fail(err, "Session could not be restored")
	}

	fetchCtx, cancel := context.WithTimeout(client.WithoutRejectHook(ctx), c.bootstrapTimeout)
	defer cancel()
	fresh, err := c.gw.FetchProfile(fetchCtx)

	switch {
	case err == nil:
		if fresh.Token != "" {
			token = fresh.Token
		}
		warning := c.save(ctx, token, fresh.Profile)
		_ = c.transition(ctx, State{Kind: Authenticated, Token: token, Profile: fresh.Profile})
		c.log.Info(ctx, "session restored", "email", fresh.Profile.Email)
		return ok(warning)

	case usable && !errors.Is(err, client.ErrUnauthorized):
		c.log.Warn(ctx, "profile check failed, trusting stored session", "error", err)
		_ = c.transition(ctx, State{Kind: Authenticated, Token: token, Profile: stored})
		return ok("")

	default:
		c.log.Info(ctx, "stored session rejected", "error", err, "remember_me", remember)
		warning := c.clear(ctx)
		_ = c.transition(ctx, State{Kind: Anonymous})
		return ok(warning)
	}
}

// Login authenticates against the server. On failure the state is left as
// it was and the server's message is returned; nothing is retried.
func (c *Controller) Login(ctx context.Context, email, password string, rememberMe bool) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.Snapshot().Kind == Unbootstrapped {
		return fail(ErrNotBootstrapped, "Session is still starting, try again")
	}

	s, err := c.gw.Login(client.WithoutRejectHook(ctx), email, password)
	if err != nil {
		c.log.Info(ctx, "login failed", "email", email, "error", err)
		return fail(err, client.Describe(err, "Login failed"))
	}

	res := c.adopt(ctx, s, rememberMe)
	if res.Success {
		c.log.Info(ctx, "logged in", "email", email)
	}
	return res
}

// Adopt installs a credential obtained elsewhere, e.g. by a completed
// registration.
func (c *Controller) Adopt(ctx context.Context, s *client.Session, rememberMe bool) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.Snapshot().Kind == Unbootstrapped {
		return fail(ErrNotBootstrapped, "Session is still starting, try again")
	}
	return c.adopt(ctx, s, rememberMe)
}

func (c *Controller) adopt(ctx context.Context, s *client.Session, rememberMe bool) Result {
	if s == nil || s.Token == "" || s.Profile == nil {
		return fail(client.ErrUnavailable, client.MsgUnreachable)
	}

	warning := c.save(ctx, s.Token, s.Profile)
	if err := c.store.SetRememberMe(ctx, rememberMe); err != nil {
		c.log.Warn(ctx, "store remember-me flag", "error", err)
		warning = joinWarnings(warning, WarnNotSaved)
	}

	if err := c.transition(ctx, State{Kind: Authenticated, Token: s.Token, Profile: s.Profile.Clone()}); err != nil {
		return fail(err, "Session could not be updated")
	}
	return ok(warning)
}

// Logout always ends in Anonymous with storage cleared. The remote call is
// made only when a token is held and its outcome is ignored.
func (c *Controller) Logout(ctx context.Context) Result {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if st := c.Snapshot(); st.Kind == Authenticated && st.Token != "" {
		if err := c.gw.Logout(client.WithoutRejectHook(ctx)); err != nil {
			c.log.Warn(ctx, "remote logout failed", "error", err)
		}
	}

	warning := c.clear(ctx)
	_ = c.transition(ctx, State{Kind: Anonymous})
	c.log.Info(ctx, "logged out")
	return ok(warning)
}

// ForceLogout drops the session without calling the server. It is the
// reaction to a server rejecting the session's credential.
func (c *Controller) ForceLogout(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.forceLogout(ctx, "credential rejected")
}

func (c *Controller) forceLogout(ctx context.Context, reason string) {
	if c.Snapshot().Kind == Authenticated {
		c.log.Warn(ctx, "session ended", "reason", reason)
	}
	_ = c.clear(ctx)
	_ = c.transition(ctx, State{Kind: Anonymous})
}

func (c *Controller) save(ctx context.Context, token string, profile *models.UserProfile) string {
	if err := c.store.Put(ctx, token, profile); err != nil {
		c.log.Warn(ctx, "store credentials", "error", err)
		return WarnNotSaved
	}
	return ""
}

func (c *Controller) clear(ctx context.Context) string {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn(ctx, "clear stored credentials", "error", err)
		return WarnNotCleared
	}
	return ""
}

// Close stops the renewal loop and ends all subscriptions. The store and the
// gateway belong to the caller.
func (c *Controller) Close() {
	c.opMu.Lock()
	c.closed = true
	c.haltRenewal()
	c.opMu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	c.mu.Unlock()
}

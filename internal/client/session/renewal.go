package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/client"
)

// startRenewal launches the renewal loop. Callers hold opMu.
func (c *Controller) startRenewal() {
	if c.closed || c.renewInterval < 0 || c.stopRenewal != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.stopRenewal = cancel

	c.wg.Add(1)
	go c.renewLoop(ctx)
}

// haltRenewal cancels the loop without waiting for it: a tick blocked on
// opMu sees the cancellation once it gets the lock. Callers hold opMu.
func (c *Controller) haltRenewal() {
	if c.stopRenewal != nil {
		c.stopRenewal()
		c.stopRenewal = nil
	}
}

func (c *Controller) renewLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.tick(ctx)
			}()
		}
	}
}

// tick runs one renewal unless the previous one is still in flight.
func (c *Controller) tick(ctx context.Context) {
	if !c.renewing.CompareAndSwap(false, true) {
		c.log.Debug(ctx, "renewal still running, tick skipped")
		return
	}
	defer c.renewing.Store(false)
	c.renew(ctx)
}

// renew refreshes the session when its token is near expiry. Only a
// rejection of a token that was actually sent ends the session; a token
// inside the grace window goes out without a bearer header, so a 401 then
// says nothing about it. Other failures are logged.
func (c *Controller) renew(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	st := c.Snapshot()
	if st.Kind != Authenticated || !c.policy.NearExpiry(st.Token) {
		return
	}

	sent := c.policy.Usable(st.Token)

	fetchCtx, cancel := context.WithTimeout(client.WithoutRejectHook(ctx), c.bootstrapTimeout)
	defer cancel()
	fresh, err := c.gw.FetchProfile(fetchCtx)
	if err != nil {
		if sent && errors.Is(err, client.ErrUnauthorized) {
			c.forceLogout(ctx, "renewal rejected")
			return
		}
		c.log.Warn(ctx, "silent renewal failed", "error", err, "token_sent", sent)
		return
	}

	token := st.Token
	if fresh.Token != "" {
		token = fresh.Token
	}
	_ = c.save(ctx, token, fresh.Profile)
	_ = c.transition(ctx, State{Kind: Authenticated, Token: token, Profile: fresh.Profile})
	c.log.Debug(ctx, "session renewed", "rotated", fresh.Token != "")
}

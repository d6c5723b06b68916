package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/vutto/internal/client/registration"
	"github.com/dmitrijs2005/vutto/internal/client/session"
)

func (a *App) getStatus() string {
	if a.flow.State() == registration.PendingVerification {
		if at, ok := a.flow.Attempt(); ok {
			return fmt.Sprintf("(verifying %s %s)", at.Email, registration.FormatRemaining(a.flow.Remaining()))
		}
	}

	st := a.session.Snapshot()
	switch {
	case st.Kind == session.Authenticated && st.Profile != nil:
		return fmt.Sprintf("(%s %s)", st.Profile.Email, st.Profile.Role)
	case st.Kind == session.Authenticated:
		return "(signed in)"
	default:
		return ""
	}
}

// watchSession tells the user when the session ends without them asking,
// e.g. after the server rejected the credential.
func (a *App) watchSession(ctx context.Context, updates <-chan session.State) {
	prev := a.session.Snapshot().Kind
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if prev == session.Authenticated && st.Kind == session.Anonymous && !a.loggingOut.Load() {
				fmt.Fprintln(a.out, "\nYour session has ended. Please log in again.")
			}
			prev = st.Kind
		}
	}
}

// Root restores the stored session, then runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to vutto CLI (type 'help' for commands)")

	res := a.session.Bootstrap(ctx)
	if res.Warning != "" {
		fmt.Fprintln(a.out, "Warning:", res.Warning)
	}
	if u := a.session.CurrentUser(); u != nil {
		fmt.Fprintf(a.out, "Signed in as %s.\n", u.DisplayName())
	}

	updates, unsubscribe := a.session.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.watchSession(ctx, updates)

	runREPL(ctx, a, a.getStatus, a.reader)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/client/registration"
	"github.com/dmitrijs2005/vutto/internal/common"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getYesNo      = GetYesNo
)

// Register collects the sign-up form and submits it. When the server asks
// for a code the flow waits for "verify <code>".
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	roleText, err := getSimpleText(a.reader, "Role (seller or customer)", a.out)
	if err != nil {
		return err
	}
	first, err := getSimpleText(a.reader, "First name (optional)", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	// An unknown role is left for the flow's validation to report.
	role, _ := models.ParseRole(roleText)

	res := a.flow.Submit(ctx, registration.Submission{
		Email:     email,
		Password:  string(password),
		Confirm:   string(confirm),
		Role:      role,
		FirstName: first,
		LastName:  last,
	})
	if res.Success && res.RequiresVerification {
		fmt.Fprintln(a.out, res.Message)
		fmt.Fprintf(a.out, "Enter the 6-digit code sent to %s with: verify <code> (expires in %s)\n",
			res.Email, registration.FormatRemaining(a.flow.Remaining()))
		return nil
	}
	return a.report(res, "Registered and signed in.")
}

// Verify submits the code for the pending registration.
func (a *App) Verify(ctx context.Context, code string) error {
	a.flow.Enter(code)
	return a.report(a.flow.Verify(ctx, code), "Email verified, you are signed in.")
}

// Resend requests a new code once the countdown has elapsed.
func (a *App) Resend(ctx context.Context) error {
	res := a.flow.Resend(ctx)
	if res.Success {
		fmt.Fprintf(a.out, "A new code was sent to %s.\n", res.Email)
		return nil
	}
	return a.report(res, "")
}

// Cancel abandons the pending registration.
func (a *App) Cancel(context.Context) error {
	if a.flow.State() != registration.PendingVerification {
		fmt.Fprintln(a.out, "Nothing to cancel.")
		return nil
	}
	a.flow.Abandon()
	fmt.Fprintln(a.out, "Registration cancelled.")
	return nil
}

// Login prompts for credentials and the remember-me choice.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	remember, err := getYesNo(a.reader, "Remember me", a.out)
	if err != nil {
		return err
	}

	res := a.session.Login(ctx, email, string(password), remember)
	if res.Success {
		a.flow.Abandon()
	}
	return a.report(res, "Login successful.")
}

// Logout ends the session locally, telling the server when possible.
func (a *App) Logout(ctx context.Context) error {
	a.loggingOut.Store(true)
	defer a.loggingOut.Store(false)
	return a.report(a.session.Logout(ctx), "Logged out.")
}

// Whoami prints the signed-in user's profile.
func (a *App) Whoami(context.Context) error {
	u := a.session.CurrentUser()
	if u == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s>, %s\n", u.DisplayName(), u.Email, u.Role)
	if u.Phone != "" {
		fmt.Fprintln(a.out, "Phone:", u.Phone)
	}
	if u.Location != "" {
		fmt.Fprintln(a.out, "Location:", u.Location)
	}
	return nil
}

// Status prints the session and registration state.
func (a *App) Status(context.Context) error {
	st := a.session.Snapshot()
	fmt.Fprintln(a.out, "Session:", st.Kind)
	if st.Token != "" {
		if left := a.session.Policy().Remaining(st.Token); left > 0 {
			fmt.Fprintln(a.out, "Token expires in:", left.Round(time.Second))
		} else {
			fmt.Fprintln(a.out, "Token: expired")
		}
	}

	if at, ok := a.flow.Attempt(); ok {
		fmt.Fprintf(a.out, "Registration: %s for %s, code expires in %s\n",
			a.flow.State(), at.Email, registration.FormatRemaining(a.flow.Remaining()))
		if a.flow.CanResend() {
			fmt.Fprintln(a.out, "You can request a new code with: resend")
		}
	}
	return nil
}

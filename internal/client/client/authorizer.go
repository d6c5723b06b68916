package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/vutto/internal/client/expiry"
	"github.com/dmitrijs2005/vutto/internal/common"
)

// TokenSource yields the credential currently held by the session owner,
// or "" when there is none.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

type rejectHookKey struct{}

// WithoutRejectHook marks ctx so that an authentication rejection of the call
// made with it does not fire Authorizer.OnRejected. The session core marks
// its own calls: it handles their rejections itself, under its own lock.
func WithoutRejectHook(ctx context.Context) context.Context {
	return context.WithValue(ctx, rejectHookKey{}, true)
}

func rejectHookDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(rejectHookKey{}).(bool)
	return v
}

// Authorizer is the authorization-decision policy of the transport.
//
// Outbound, it attaches "Authorization: Bearer <token>" only when the token
// is usable under Policy; a known-stale token is never sent. Inbound, a 401
// or 403 answer to a call that carried a token fires OnRejected, unless the
// path is exempt (the profile fetch used to validate a stored session) or
// the call was marked with WithoutRejectHook.
type Authorizer struct {
	Tokens      TokenSource
	Policy      *expiry.Policy
	OnRejected  func(ctx context.Context)
	ExemptPaths []string
	Next        http.RoundTripper
}

// NewAuthorizer builds an Authorizer over http.DefaultTransport with the
// profile path exempt.
func NewAuthorizer(tokens TokenSource, policy *expiry.Policy, onRejected func(ctx context.Context)) *Authorizer {
	return &Authorizer{
		Tokens:      tokens,
		Policy:      policy,
		OnRejected:  onRejected,
		ExemptPaths: []string{common.ProfilePath},
	}
}

func (a *Authorizer) next() http.RoundTripper {
	if a.Next == nil {
		return http.DefaultTransport
	}
	return a.Next
}

// currentToken returns the token worth sending, "" otherwise.
func (a *Authorizer) currentToken() string {
	if a.Tokens == nil || a.Policy == nil {
		return ""
	}
	token := a.Tokens.Token()
	if token == "" || !a.Policy.Usable(token) {
		return ""
	}
	return token
}

func (a *Authorizer) exempt(path string) bool {
	for _, p := range a.ExemptPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	token := a.currentToken()

	out := req
	if token != "" {
		out = req.Clone(req.Context())
		out.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	} else if req.Header.Get(common.AuthorizationHeaderName) != "" {
		out = req.Clone(req.Context())
		out.Header.Del(common.AuthorizationHeaderName)
	}

	resp, err := a.next().RoundTrip(out)
	if err != nil {
		return nil, err
	}

	rejected := resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
	if rejected && token != "" && a.OnRejected != nil &&
		!a.exempt(req.URL.Path) && !rejectHookDisabled(req.Context()) {
		a.OnRejected(req.Context())
	}
	return resp, nil
}

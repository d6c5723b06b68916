// Package expiry answers "is this credential usable right now" from the
// token's own exp claim. The token is never verified here: the client only
// reads the claim to decide whether sending it is worthwhile.
package expiry

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultGraceWindow keeps in-flight requests from racing the expiry boundary.
	DefaultGraceWindow = 5 * time.Minute
	// DefaultRenewWindow is how close to expiry the renewal loop starts refreshing.
	DefaultRenewWindow = 10 * time.Minute
)

var ErrWindowOrder = errors.New("renew window must be larger than grace window")

var parser = jwt.NewParser()

// DecodeExpiry reads the exp claim of a three-segment token. It reports false
// for malformed tokens, non-JSON payloads and payloads without exp.
func DecodeExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	// The alg header is irrelevant for reading exp; claims are already
	// decoded when only the signing method lookup fails.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Policy is the single implementation of the usability and renewal
// predicates. Share one *Policy between the session controller and the
// request authorizer.
type Policy struct {
	Grace time.Duration
	Renew time.Duration
	Now   func() time.Time
}

// New builds a Policy. renew must exceed grace.
func New(grace, renew time.Duration) (*Policy, error) {
	if renew <= grace {
		return nil, ErrWindowOrder
	}
	return &Policy{Grace: grace, Renew: renew, Now: time.Now}, nil
}

// Default returns the 5 minute grace / 10 minute renew policy.
func Default() *Policy {
	return &Policy{Grace: DefaultGraceWindow, Renew: DefaultRenewWindow, Now: time.Now}
}

func (p *Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Usable reports whether token decodes and now < exp - Grace.
func (p *Policy) Usable(token string) bool {
	exp, ok := DecodeExpiry(token)
	if !ok {
		return false
	}
	return p.now().Before(exp.Add(-p.Grace))
}

// NearExpiry reports whether token decodes and now > exp - Renew.
func (p *Policy) NearExpiry(token string) bool {
	exp, ok := DecodeExpiry(token)
	if !ok {
		return false
	}
	return p.now().After(exp.Add(-p.Renew))
}

// Remaining is the time left until exp, or 0 for undecodable or expired tokens.
func (p *Policy) Remaining(token string) time.Duration {
	exp, ok := DecodeExpiry(token)
	if !ok {
		return 0
	}
	if d := exp.Sub(p.now()); d > 0 {
		return d
	}
	return 0
}

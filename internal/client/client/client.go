package client

import (
	"context"

	"github.com/dmitrijs2005/vutto/internal/client/models"
)

// Session is a credential the server issued together with the profile it
// belongs to. FetchProfile may return an empty Token when the server did not
// rotate the credential.
type Session struct {
	Token   string
	Profile *models.UserProfile
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

// RegisterResult is exactly one of: an immediate Session, or
// VerificationRequired with the server's message.
type RegisterResult struct {
	Session              *Session
	VerificationRequired bool
	Message              string
	Email                string
}

// Client is the auth gateway consumed by the session core.
//
// Verify and ResendVerification re-send the whole registration payload: the
// server's verification endpoint keeps no pending-registration state.
type Client interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Verify(ctx context.Context, email, code, password string, role models.Role) (*Session, error)
	ResendVerification(ctx context.Context, email, password string, role models.Role) error
	FetchProfile(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Close() error
}

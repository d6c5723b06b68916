package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/client"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeGateway is a scriptable client.Client. Unset funcs answer
// ErrUnavailable.
type fakeGateway struct {
	LoginFunc        func(ctx context.Context, email, password string) (*client.Session, error)
	FetchProfileFunc func(ctx context.Context) (*client.Session, error)
	LogoutFunc       func(ctx context.Context) error

	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

func (f *fakeGateway) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeGateway) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func unavailable() error {
	return &client.APIError{Kind: client.ErrUnavailable, Message: "connection refused"}
}

func rejected() error {
	return &client.APIError{Status: 401, Kind: client.ErrUnauthorized, Message: "Invalid token"}
}

func (f *fakeGateway) Register(context.Context, client.RegisterRequest) (*client.RegisterResult, error) {
	f.count("Register")
	return nil, unavailable()
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) (*client.Session, error) {
	f.count("Login")
	if f.LoginFunc == nil {
		return nil, unavailable()
	}
	return f.LoginFunc(ctx, email, password)
}

func (f *fakeGateway) Verify(context.Context, string, string, string, models.Role) (*client.Session, error) {
	f.count("Verify")
	return nil, unavailable()
}

func (f *fakeGateway) ResendVerification(context.Context, string, string, models.Role) error {
	f.count("ResendVerification")
	return unavailable()
}

func (f *fakeGateway) FetchProfile(ctx context.Context) (*client.Session, error) {
	f.count("FetchProfile")
	if f.FetchProfileFunc == nil {
		return nil, unavailable()
	}
	return f.FetchProfileFunc(ctx)
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	f.count("Logout")
	if f.LogoutFunc == nil {
		return unavailable()
	}
	return f.LogoutFunc(ctx)
}

func (f *fakeGateway) Close() error {
	f.closed = true
	return nil
}

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func profile(id, email string, role models.Role) *models.UserProfile {
	return &models.UserProfile{ID: id, Email: email, Role: role}
}

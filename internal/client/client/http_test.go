package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/expiry"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var alice = &models.UserProfile{ID: "u1", Email: "alice@example.com", Role: models.RoleCustomer}

func newTestClient(t *testing.T, r http.Handler, auth *Authorizer) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, auth, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient("localhost:8080", nil, 0)
	require.Error(t, err)
}

func TestHTTPClient_Login_Success(t *testing.T) {
	var got loginBody
	var requestID string

	r := chi.NewRouter()
	r.Post(common.LoginPath, func(w http.ResponseWriter, req *http.Request) {
		requestID = req.Header.Get(common.RequestIDHeaderName)
		_ = json.NewDecoder(req.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "user": alice})
	})

	c := newTestClient(t, r, nil)
	s, err := c.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, alice, s.Profile)
	assert.Equal(t, loginBody{Email: "alice@example.com", Password: "secret1"}, got)
	assert.NotEmpty(t, requestID)
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Invalid credentials"}`, kind: ErrUnauthorized, message: "Invalid credentials"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"message":"Account locked"}`, kind: ErrUnauthorized, message: "Account locked"},
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"Email already registered"}`, kind: ErrRejected, message: "Email already registered"},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, kind: ErrUnavailable, message: "boom"},
		{name: "gateway error without body", status: http.StatusBadGateway, body: ``, kind: ErrUnavailable},
		{name: "malformed success", status: http.StatusOK, body: `{"token":`, kind: ErrUnavailable, message: "malformed response"},
		{name: "success without user", status: http.StatusOK, body: `{"token":"x"}`, kind: ErrUnavailable, message: "malformed response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post(common.LoginPath, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			c := newTestClient(t, r, nil)
			_, err := c.Login(context.Background(), "a@b.c", "secret1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestHTTPClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, nil, 0)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "a@b.c", "secret1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_Timeout(t *testing.T) {
	r := chi.NewRouter()
	r.Get(common.ProfilePath, func(w http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	})

	c := newTestClient(t, r, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchProfile(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "request timed out", Message(err, ""))
}

func TestHTTPClient_Register(t *testing.T) {
	tests := []struct {
		name    string
		answer  map[string]any
		wantVR  bool
		wantMsg string
	}{
		{
			name:    "otp message",
			answer:  map[string]any{"message": "OTP sent to your email"},
			wantVR:  true,
			wantMsg: "OTP sent to your email",
		},
		{
			name:    "requires_otp flag",
			answer:  map[string]any{"message": "Check your inbox", "requires_otp": true},
			wantVR:  true,
			wantMsg: "Check your inbox",
		},
		{
			name:   "immediate session",
			answer: map[string]any{"token": "tok-1", "user": alice},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got registerBody
			r := chi.NewRouter()
			r.Post(common.RegisterPath, func(w http.ResponseWriter, req *http.Request) {
				_ = json.NewDecoder(req.Body).Decode(&got)
				writeJSON(w, http.StatusOK, tt.answer)
			})

			c := newTestClient(t, r, nil)
			res, err := c.Register(context.Background(), RegisterRequest{
				Email: "alice@example.com", Password: "secret1", FirstName: "Alice", Role: models.RoleCustomer,
			})
			require.NoError(t, err)

			assert.Equal(t, "Alice", got.FirstName)
			assert.Empty(t, got.OTP)
			assert.Equal(t, tt.wantVR, res.VerificationRequired)
			if tt.wantVR {
				assert.Nil(t, res.Session)
				assert.Equal(t, tt.wantMsg, res.Message)
				assert.Equal(t, "alice@example.com", res.Email)
			} else {
				require.NotNil(t, res.Session)
				assert.Equal(t, "tok-1", res.Session.Token)
			}
		})
	}
}

func TestHTTPClient_VerifyAndResendResendPayload(t *testing.T) {
	var bodies []registerBody
	r := chi.NewRouter()
	r.Post(common.RegisterPath, func(w http.ResponseWriter, req *http.Request) {
		var b registerBody
		_ = json.NewDecoder(req.Body).Decode(&b)
		bodies = append(bodies, b)
		if b.OTP == "" {
			writeJSON(w, http.StatusOK, map[string]any{"message": "OTP sent"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2", "user": alice})
	})

	c := newTestClient(t, r, nil)
	ctx := context.Background()

	require.NoError(t, c.ResendVerification(ctx, "alice@example.com", "secret1", models.RoleSeller))
	s, err := c.Verify(ctx, "alice@example.com", "123456", "secret1", models.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", s.Token)

	require.Len(t, bodies, 2)
	assert.Equal(t, registerBody{Email: "alice@example.com", Password: "secret1", Role: models.RoleSeller}, bodies[0])
	assert.Equal(t, registerBody{Email: "alice@example.com", Password: "secret1", Role: models.RoleSeller, OTP: "123456"}, bodies[1])
}

func TestHTTPClient_FetchProfile_NoRotation(t *testing.T) {
	r := chi.NewRouter()
	r.Get(common.ProfilePath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": alice})
	})

	c := newTestClient(t, r, nil)
	s, err := c.FetchProfile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Token)
	assert.Equal(t, alice, s.Profile)
}

func TestHTTPClient_Logout(t *testing.T) {
	var called atomic.Bool
	r := chi.NewRouter()
	r.Post(common.LogoutPath, func(w http.ResponseWriter, _ *http.Request) {
		called.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, r, nil)
	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, called.Load())
}

func TestAuthorizer_AttachesOnlyUsableTokens(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantAuth bool
	}{
		{name: "fresh", token: tokenExpiringIn(t, time.Hour), wantAuth: true},
		{name: "inside grace window", token: tokenExpiringIn(t, 2*time.Minute)},
		{name: "expired", token: tokenExpiringIn(t, -time.Hour)},
		{name: "garbage", token: "abc"},
		{name: "none", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header string
			r := chi.NewRouter()
			r.Get(common.ProfilePath, func(w http.ResponseWriter, req *http.Request) {
				header = req.Header.Get(common.AuthorizationHeaderName)
				writeJSON(w, http.StatusOK, map[string]any{"user": alice})
			})

			auth := NewAuthorizer(TokenSourceFunc(func() string { return tt.token }), expiry.Default(), nil)
			c := newTestClient(t, r, auth)

			_, err := c.FetchProfile(context.Background())
			require.NoError(t, err)
			if tt.wantAuth {
				assert.Equal(t, common.BearerPrefix+tt.token, header)
			} else {
				assert.Empty(t, header)
			}
		})
	}
}

func TestAuthorizer_RejectionHook(t *testing.T) {
	fresh := tokenExpiringIn(t, time.Hour)

	tests := []struct {
		name     string
		token    string
		method   string
		path     string
		mark     bool
		wantHook bool
	}{
		{name: "authorised call rejected", token: fresh, method: http.MethodGet, path: "/listings", wantHook: true},
		{name: "logout rejected", token: fresh, method: http.MethodPost, path: common.LogoutPath, wantHook: true},
		{name: "profile path exempt", token: fresh, method: http.MethodGet, path: common.ProfilePath},
		{name: "marked context", token: fresh, method: http.MethodGet, path: "/listings", mark: true},
		{name: "anonymous call", token: "", method: http.MethodGet, path: "/listings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token revoked"})
			})

			var fired atomic.Int32
			auth := NewAuthorizer(
				TokenSourceFunc(func() string { return tt.token }),
				expiry.Default(),
				func(context.Context) { fired.Add(1) },
			)
			c := newTestClient(t, r, auth)

			ctx := context.Background()
			if tt.mark {
				ctx = WithoutRejectHook(ctx)
			}
			err := c.Do(ctx, tt.method, tt.path, nil, nil)
			require.ErrorIs(t, err, ErrUnauthorized)
			assert.Equal(t, "token revoked", Message(err, "fallback"))

			if tt.wantHook {
				assert.Equal(t, int32(1), fired.Load())
			} else {
				assert.Zero(t, fired.Load())
			}
		})
	}
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "Login failed", Message(errors.New("plain"), "Login failed"))
	assert.Equal(t, "Login failed", Message(&APIError{Kind: ErrRejected}, "Login failed"))
	assert.Equal(t, "nope", Message(&APIError{Kind: ErrRejected, Message: "nope"}, "Login failed"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, MsgUnreachable, Describe(&APIError{Kind: ErrUnavailable, Message: "boom"}, "Login failed"))
	assert.Equal(t, "Invalid credentials", Describe(&APIError{Kind: ErrUnauthorized, Message: "Invalid credentials"}, "Login failed"))
	assert.Equal(t, "Login failed", Describe(&APIError{Kind: ErrRejected}, "Login failed"))
}

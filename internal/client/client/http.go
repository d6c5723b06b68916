package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/google/uuid"
)

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// HTTPClient implements Client over the marketplace REST API.
type HTTPClient struct {
	baseURL *url.URL
	hc      *http.Client
}

// NewHTTPClient builds a client for baseURL. auth becomes the transport so
// every call goes through the authorization policy; a nil auth sends calls
// unauthenticated. timeout 0 leaves calls bounded only by their contexts.
func NewHTTPClient(baseURL string, auth *Authorizer, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse server url: %q is not absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Jar: jar, Timeout: timeout}
	if auth != nil {
		hc.Transport = auth
	}
	return &HTTPClient{baseURL: u, hc: hc}, nil
}

// Wire shapes of the REST API.
type (
	registerBody struct {
		Email     string      `json:"email"`
		Password  string      `json:"password"`
		FirstName string      `json:"first_name,omitempty"`
		LastName  string      `json:"last_name,omitempty"`
		Role      models.Role `json:"role"`
		OTP       string      `json:"otp,omitempty"`
	}

	loginBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	authResponse struct {
		Token       string              `json:"token"`
		User        *models.UserProfile `json:"user"`
		Message     string              `json:"message"`
		Email       string              `json:"email"`
		RequiresOTP bool                `json:"requires_otp"`
	}

	errorResponse struct {
		Message string `json:"message"`
	}
)

// Do sends one JSON request and decodes a JSON answer into out (when out is
// not nil). It is exported so other API consumers share the authorised
// transport.
func (c *HTTPClient) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &APIError{Status: resp.StatusCode, Kind: ErrUnavailable, Message: "failed to read response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Kind: ErrUnavailable, Message: "malformed response"}
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: ErrUnavailable, Message: "request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: ErrUnavailable, Message: "request canceled"}
	}
	return &APIError{Kind: ErrUnavailable, Message: err.Error()}
}

func mapStatus(status int, body []byte) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Status: status, Kind: ErrUnauthorized, Message: e.Message}
	case status >= 500:
		return &APIError{Status: status, Kind: ErrUnavailable, Message: e.Message}
	default:
		return &APIError{Status: status, Kind: ErrRejected, Message: e.Message}
	}
}

// session converts an auth response into a Session, rejecting answers that
// miss the token or the profile.
func (r *authResponse) session() (*Session, error) {
	if r.Token == "" || r.User == nil {
		return nil, &APIError{Status: http.StatusOK, Kind: ErrUnavailable, Message: "malformed response"}
	}
	return &Session{Token: r.Token, Profile: r.User}, nil
}

func (r *authResponse) needsVerification() bool {
	return r.Token == "" && (r.RequiresOTP || strings.Contains(r.Message, "OTP"))
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	var resp authResponse
	err := c.Do(ctx, http.MethodPost, common.RegisterPath, registerBody{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.needsVerification() {
		email := resp.Email
		if email == "" {
			email = req.Email
		}
		return &RegisterResult{VerificationRequired: true, Message: resp.Message, Email: email}, nil
	}

	s, err := resp.session()
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Session: s}, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp authResponse
	if err := c.Do(ctx, http.MethodPost, common.LoginPath, loginBody{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp.session()
}

func (c *HTTPClient) Verify(ctx context.Context, email, code, password string, role models.Role) (*Session, error) {
	var resp authResponse
	err := c.Do(ctx, http.MethodPost, common.RegisterPath, registerBody{
		Email:    email,
		Password: password,
		Role:     role,
		OTP:      code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.session()
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email, password string, role models.Role) error {
	return c.Do(ctx, http.MethodPost, common.RegisterPath, registerBody{
		Email:    email,
		Password: password,
		Role:     role,
	}, nil)
}

func (c *HTTPClient) FetchProfile(ctx context.Context) (*Session, error) {
	var resp authResponse
	if err := c.Do(ctx, http.MethodGet, common.ProfilePath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &APIError{Status: http.StatusOK, Kind: ErrUnavailable, Message: "malformed response"}
	}
	return &Session{Token: resp.Token, Profile: resp.User}, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, common.LogoutPath, nil, nil)
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

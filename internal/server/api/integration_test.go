package api_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vutto/internal/client/client"
	"github.com/dmitrijs2005/vutto/internal/client/credstore"
	"github.com/dmitrijs2005/vutto/internal/client/expiry"
	"github.com/dmitrijs2005/vutto/internal/client/models"
	"github.com/dmitrijs2005/vutto/internal/client/registration"
	"github.com/dmitrijs2005/vutto/internal/client/session"
	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/dmitrijs2005/vutto/internal/logging"
	"github.com/dmitrijs2005/vutto/internal/server/api"
	"github.com/dmitrijs2005/vutto/internal/server/config"
	"github.com/dmitrijs2005/vutto/internal/server/revocations"
	"github.com/dmitrijs2005/vutto/internal/server/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var codeRe = regexp.MustCompile(`code=(\d{6})`)

// stack is a stub server plus a full client wired the way the CLI wires it.
type stack struct {
	url   string
	clock *clock
	logs  *lockedBuffer
	store *credstore.MemoryStore
}

func newStack(t *testing.T) *stack {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	st := &stack{
		clock: &clock{t: time.Now().Truncate(time.Second)},
		logs:  &lockedBuffer{},
		store: credstore.NewMemoryStore(),
	}
	log := logging.NewTextLogger(st.logs, "debug")
	us := users.NewService(users.NewMemoryRepository(), revocations.NewMemoryRepository(), cfg, log,
		users.WithClock(st.clock.Now), users.WithHashCost(bcrypt.MinCost))

	srv := httptest.NewServer(api.NewServer("", log, us).Handler())
	t.Cleanup(srv.Close)
	st.url = srv.URL
	return st
}

func (st *stack) lastCode(t *testing.T) string {
	t.Helper()
	m := codeRe.FindAllStringSubmatch(st.logs.String(), -1)
	require.NotEmpty(t, m, "no code logged")
	return m[len(m)-1][1]
}

type clientSide struct {
	gw   *client.HTTPClient
	ctrl *session.Controller
}

func (st *stack) connect(t *testing.T, renew time.Duration) *clientSide {
	t.Helper()

	policy := expiry.Default()
	policy.Now = st.clock.Now

	auth := client.NewAuthorizer(nil, policy, nil)
	gw, err := client.NewHTTPClient(st.url, auth, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	ctrl := session.New(gw, st.store, session.Options{Policy: policy, RenewInterval: renew})
	t.Cleanup(ctrl.Close)
	ctrl.Attach(auth)

	require.True(t, ctrl.Bootstrap(context.Background()).Success)
	return &clientSide{gw: gw, ctrl: ctrl}
}

func TestEndToEnd_RegisterVerifyLogoutLogin(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	c := st.connect(t, -1)
	require.Equal(t, session.Anonymous, c.ctrl.Snapshot().Kind)

	flow := registration.New(c.gw, c.ctrl, registration.Options{Now: st.clock.Now})

	res := flow.Submit(ctx, registration.Submission{
		Email:     "erin@example.com",
		Password:  "secret1",
		Confirm:   "secret1",
		Role:      models.RoleSeller,
		FirstName: "Erin",
	})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.RequiresVerification)
	assert.Equal(t, registration.PendingVerification, flow.State())

	wrong := "000000"
	if st.lastCode(t) == wrong {
		wrong = "111111"
	}
	res = flow.Verify(ctx, wrong)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid or expired OTP", res.Error)
	assert.Equal(t, registration.PendingVerification, flow.State())

	res = flow.Verify(ctx, st.lastCode(t))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, registration.Complete, flow.State())
	assert.True(t, c.ctrl.IsAuthenticated())
	assert.True(t, c.ctrl.IsSeller())
	assert.Equal(t, "Erin", c.ctrl.CurrentUser().FirstName)

	token := c.ctrl.Token()
	stored, _, err := st.store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, stored)

	res = c.ctrl.Logout(ctx)
	require.True(t, res.Success)
	assert.Equal(t, session.Anonymous, c.ctrl.Snapshot().Kind)

	// the server revoked the old token
	req, err := http.NewRequest(http.MethodGet, st.url+common.ProfilePath, nil)
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	res = c.ctrl.Login(ctx, "erin@example.com", "wrong-pass", false)
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Error)

	res = c.ctrl.Login(ctx, "erin@example.com", "secret1", true)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, models.RoleSeller, c.ctrl.Role())
}

func TestEndToEnd_RestartRestoresSession(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	first := st.connect(t, -1)
	flow := registration.New(first.gw, first.ctrl, registration.Options{Now: st.clock.Now})
	require.True(t, flow.Submit(ctx, registration.Submission{
		Email: "finn@example.com", Password: "secret1", Confirm: "secret1", Role: models.RoleCustomer,
	}).Success)
	require.True(t, flow.Verify(ctx, st.lastCode(t)).Success)
	token := first.ctrl.Token()

	second := st.connect(t, -1)
	snap := second.ctrl.Snapshot()
	require.Equal(t, session.Authenticated, snap.Kind)
	assert.Equal(t, token, snap.Token)
	assert.Equal(t, "finn@example.com", snap.Profile.Email)
}

func TestEndToEnd_RenewalPicksUpRotatedToken(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	c := st.connect(t, 10*time.Millisecond)

	flow := registration.New(c.gw, c.ctrl, registration.Options{Now: st.clock.Now})
	require.True(t, flow.Submit(ctx, registration.Submission{
		Email: "gus@example.com", Password: "secret1", Confirm: "secret1", Role: models.RoleCustomer,
	}).Success)
	require.True(t, flow.Verify(ctx, st.lastCode(t)).Success)

	old := c.ctrl.Token()
	st.clock.Advance(22 * time.Minute)

	require.Eventually(t, func() bool {
		return c.ctrl.Token() != old
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, c.ctrl.IsAuthenticated())
	assert.False(t, c.ctrl.Policy().NearExpiry(c.ctrl.Token()))
}

func TestEndToEnd_RenewalInsideGraceWindowKeepsSession(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	c := st.connect(t, 10*time.Millisecond)

	flow := registration.New(c.gw, c.ctrl, registration.Options{Now: st.clock.Now})
	require.True(t, flow.Submit(ctx, registration.Submission{
		Email: "ivy@example.com", Password: "secret1", Confirm: "secret1", Role: models.RoleCustomer,
	}).Success)
	require.True(t, flow.Verify(ctx, st.lastCode(t)).Success)

	token := c.ctrl.Token()
	// 3 minutes of server-side validity left, inside the client's grace window
	st.clock.Advance(27 * time.Minute)

	require.Eventually(t, func() bool {
		return strings.Contains(st.logs.String(), "path="+common.ProfilePath+" status=401")
	}, 2*time.Second, 10*time.Millisecond, "renewal did not reach the server")

	assert.Never(t, func() bool {
		return c.ctrl.Snapshot().Kind != session.Authenticated
	}, 200*time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, token, c.ctrl.Token())
	stored, _, err := st.store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
}

func TestEndToEnd_RejectedCallForcesLogout(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	c := st.connect(t, -1)

	flow := registration.New(c.gw, c.ctrl, registration.Options{Now: st.clock.Now})
	require.True(t, flow.Submit(ctx, registration.Submission{
		Email: "hal@example.com", Password: "secret1", Confirm: "secret1", Role: models.RoleCustomer,
	}).Success)
	require.True(t, flow.Verify(ctx, st.lastCode(t)).Success)

	updates, cancel := c.ctrl.Subscribe()
	defer cancel()

	// revoke the token behind the client's back, then make an authorised call
	req, err := http.NewRequest(http.MethodPost, st.url+common.LogoutPath, nil)
	require.NoError(t, err)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.ctrl.Token())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	err = c.gw.Do(ctx, http.MethodPost, common.LogoutPath, nil, nil)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	assert.Equal(t, session.Anonymous, c.ctrl.Snapshot().Kind)
	select {
	case s := <-updates:
		assert.Equal(t, session.Anonymous, s.Kind)
	case <-time.After(time.Second):
		t.Fatal("no state change published")
	}
	token, _, err := st.store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	us := users.NewService(users.NewMemoryRepository(), revocations.NewMemoryRepository(), cfg, logging.Discard())
	srv := api.NewServer("", logging.Discard(), us)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

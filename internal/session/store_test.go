package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"taskmate/internal/apperr"
	"taskmate/internal/backend/restapi"
	"taskmate/internal/credential"
	"taskmate/internal/httpclient"
	"taskmate/internal/notify"
	"taskmate/internal/service"
	"taskmate/internal/session"
	"taskmate/internal/testutil"
)

type recordingNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNav) Push(_ context.Context, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, name)
	return nil
}

func (n *recordingNav) Routes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

type harness struct {
	api    *testutil.FakeAPI
	client *restapi.Client
	creds  *credential.MemoryStore
	nav    *recordingNav
	notes  *notify.Recorder
	store  *session.Store
}

func newHarness(t *testing.T, tok *oauth2.Token) *harness {
	t.Helper()
	return newHarnessWithAPI(t, testutil.NewFakeAPI(t), tok)
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.api.AddUser("Ada", "ada@example.com", "secret")
	require.NoError(t, h.store.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "secret"}))
	h.notes.Reset()
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.api.AddUser("Ada", "ada@example.com", "secret")

	err := h.store.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)

	snap := h.store.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, session.Authenticated, snap.State)
	assert.Equal(t, "ada@example.com", snap.User.Email())
	assert.Nil(t, snap.Error)
	assert.False(t, snap.Loading)

	assert.Equal(t, []string{session.DefaultLandingRoute}, h.nav.Routes())
	assert.Equal(t, 1, h.notes.Count(notify.Success, ""))

	stored, err := h.creds.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, stored.AccessToken)
}

func TestLogin_BadPassword(t *testing.T) {
	h := newHarness(t, nil)
	h.api.AddUser("Ada", "ada@example.com", "secret")

	err := h.store.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperr.Authentication, apperr.KindOf(err))

	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, session.Anonymous, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Invalid credentials", snap.Error.Message)
	assert.False(t, snap.Loading)

	assert.Empty(t, h.nav.Routes())
	assert.Equal(t, 1, h.notes.Count(notify.Error, "Invalid credentials"))
	// A 401 while anonymous is not a session expiry.
	assert.Zero(t, h.notes.Count(notify.Error, session.MsgSessionExpired))
	assert.False(t, h.store.HasCredential())
}

func TestLogin_FallbackMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.api.Fail(testutil.RouteLogin, http.StatusInternalServerError, "")

	err := h.store.Login(context.Background(), service.Credentials{Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, session.MsgLoginFailed, err.Error())
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	h := newHarness(t, nil)
	h.api.AddUser("Ada", "ada@example.com", "secret")

	require.Error(t, h.store.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "wrong"}))
	require.NotNil(t, h.store.Err())

	require.NoError(t, h.store.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "secret"}))
	assert.Nil(t, h.store.Err())
}

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)

	err := h.store.Register(context.Background(), service.Registration{Name: "Grace", Email: "grace@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.True(t, h.store.IsAuthenticated())
	assert.Equal(t, "Grace", h.store.User().Name())
	assert.Equal(t, []string{session.DefaultLandingRoute}, h.nav.Routes())
	assert.Equal(t, 1, h.notes.Count(notify.Success, session.MsgRegistered))
	require.True(t, h.store.HasCredential())

	tok := h.store.Credential()
	require.NotNil(t, tok)
	tok.AccessToken = "tampered"
	assert.NotEqual(t, "tampered", h.store.Credential().AccessToken)
}

func TestRegister_ExistingUser(t *testing.T) {
	h := newHarness(t, nil)
	h.api.AddUser("Grace", "grace@example.com", "pw")

	err := h.store.Register(context.Background(), service.Registration{Name: "Grace", Email: "grace@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.False(t, h.store.IsAuthenticated())
	assert.Equal(t, 1, h.notes.Count(notify.Error, "User already exists"))
}

func TestLoginThenLogout(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	require.NoError(t, h.store.Logout(context.Background()))

	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Error)
	assert.Equal(t, session.Anonymous, snap.State)
	assert.False(t, h.store.HasCredential())

	_, err := h.creds.Load()
	assert.ErrorIs(t, err, credential.ErrNoCredential)

	assert.Equal(t, []string{session.DefaultLandingRoute, session.DefaultPublicRoute}, h.nav.Routes())
	assert.Equal(t, 1, h.notes.Count(notify.Info, session.MsgLoggedOut))
	assert.Equal(t, 1, h.api.Calls(testutil.RouteLogout))
}

func TestLogout_WhileAnonymousMakesNoCalls(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.store.Logout(context.Background()))

	assert.Zero(t, h.api.TotalCalls())
	assert.Empty(t, h.notes.All())
	assert.Equal(t, []string{session.DefaultPublicRoute}, h.nav.Routes())
}

func TestLogout_ServerFailureIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.api.Fail(testutil.RouteLogout, http.StatusInternalServerError, "boom")

	require.NoError(t, h.store.Logout(context.Background()))
	assert.False(t, h.store.IsAuthenticated())
	assert.Zero(t, h.notes.Count(notify.Error, ""))
}

func TestFetchUserState_RestoredCredential(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("Ada", "ada@example.com", "secret")
	tok := api.IssueToken("ada@example.com")

	h := newHarnessWithAPI(t, api, credential.FromServerToken(tok))
	assert.False(t, h.store.IsAuthenticated())
	assert.False(t, h.store.Resolved())

	require.NoError(t, h.store.FetchUserState(context.Background()))
	assert.True(t, h.store.IsAuthenticated())
	assert.Equal(t, "Ada", h.store.User().Name())

	// Already authenticated: no further request.
	require.NoError(t, h.store.FetchUserState(context.Background()))
	assert.Equal(t, 1, api.Calls(testutil.RouteMe))

	assert.Empty(t, h.nav.Routes())
	assert.Empty(t, h.notes.All())
}

func TestFetchUserState_NoCredential(t *testing.T) {
	h := newHarness(t, nil)

	err := h.store.FetchUserState(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.SessionInvalid, apperr.KindOf(err))
	assert.True(t, h.store.Resolved())
	assert.Zero(t, h.api.TotalCalls())
}

func TestFetchUserState_RejectedCredentialIsDestroyed(t *testing.T) {
	h := newHarness(t, &oauth2.Token{AccessToken: "stale", TokenType: "Bearer"})
	require.True(t, h.store.HasCredential())

	err := h.store.FetchUserState(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.SessionInvalid, apperr.KindOf(err))

	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, session.Anonymous, snap.State)
	require.NotNil(t, snap.Error)
	assert.False(t, h.store.HasCredential())

	_, err = h.creds.Load()
	assert.ErrorIs(t, err, credential.ErrNoCredential)

	// Verification never navigates or notifies.
	assert.Empty(t, h.nav.Routes())
	assert.Empty(t, h.notes.All())
}

func TestFetchUserState_ServerErrorKeepsCredential(t *testing.T) {
	h := newHarness(t, &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"})
	h.api.Fail(testutil.RouteMe, http.StatusInternalServerError, "db down")

	err := h.store.FetchUserState(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	assert.True(t, h.store.Resolved())
	assert.True(t, h.store.HasCredential())
}

func TestExpiry_SingleLogoutUnderConcurrentFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.api.RevokeTokens()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.client.ListTasks(context.Background(), service.Filters{})
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, session.Anonymous, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, apperr.SessionInvalid, snap.Error.Kind)
	assert.False(t, h.store.HasCredential())

	assert.Equal(t, 1, h.notes.Count(notify.Error, session.MsgSessionExpired))
	assert.Equal(t, []string{session.DefaultLandingRoute, session.DefaultPublicRoute}, h.nav.Routes())
	// Expiry does not tell the server.
	assert.Zero(t, h.api.Calls(testutil.RouteLogout))
}

func TestExpiry_IgnoredWhileAnonymous(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.client.ListTasks(context.Background(), service.Filters{})
	require.Error(t, err)

	assert.Empty(t, h.notes.All())
	assert.Empty(t, h.nav.Routes())
	assert.Nil(t, h.store.Err())
}

func TestExpireSession_OnlyFirstCallerWins(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	assert.True(t, h.store.ExpireSession(context.Background()))
	assert.False(t, h.store.ExpireSession(context.Background()))
}

func TestAttachCredential(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	require.NoError(t, err)
	require.NoError(t, h.store.AttachCredential(req))
	assert.Contains(t, req.Header.Get("Authorization"), "Bearer ")

	require.NoError(t, h.store.Logout(context.Background()))
	req, err = http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	require.NoError(t, err)
	require.NoError(t, h.store.AttachCredential(req))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func newHarnessWithAPI(t *testing.T, api *testutil.FakeAPI, tok *oauth2.Token) *harness {
	t.Helper()

	h := &harness{
		api:   api,
		creds: credential.NewMemoryStore(tok),
		nav:   &recordingNav{},
		notes: &notify.Recorder{},
	}
	hc := httpclient.New(api.URL())
	h.client = restapi.New(hc, 0)
	h.store = session.New(session.Options{
		API:         h.client,
		Credentials: h.creds,
		Navigator:   h.nav,
		Notifier:    h.notes,
	})
	hc.BeforeSend(h.store.AttachCredential)
	session.InstallExpiryInterceptor(hc, h.store, h.notes)
	require.NoError(t, h.store.Restore())
	return h
}

type failingNav struct{}

func (failingNav) Push(context.Context, string) error { return errors.New("no such route") }

// newBareStore builds a store against api with the given navigator and
// notifier, without the expiry interceptor.
func newBareStore(t *testing.T, api *testutil.FakeAPI, nav session.Navigator, n notify.Notifier) *session.Store {
	t.Helper()
	hc := httpclient.New(api.URL())
	s := session.New(session.Options{
		API:       restapi.New(hc, 0),
		Navigator: nav,
		Notifier:  n,
	})
	hc.BeforeSend(s.AttachCredential)
	return s
}

func TestLogin_NavigationFailureStillSucceeds(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("Ada", "ada@example.com", "secret")
	s := newBareStore(t, api, failingNav{}, nil)

	require.NoError(t, s.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "secret"}))

	snap := s.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
}

func TestLogin_WithoutNavigator(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.AddUser("Ada", "ada@example.com", "secret")
	s := newBareStore(t, api, nil, nil)

	require.NotPanics(t, func() {
		require.NoError(t, s.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: "secret"}))
	})
	assert.True(t, s.IsAuthenticated())
	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsAuthenticated())
}

func TestAuthenticate_PanickingNotifierClearsLoading(t *testing.T) {
	tests := []struct {
		name     string
		password string
		authed   bool
	}{
		{"success", "secret", true},
		{"failure", "wrong", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testutil.NewFakeAPI(t)
			api.AddUser("Ada", "ada@example.com", "secret")
			boom := notify.Func(func(notify.Notification) { panic("notifier failed") })
			s := newBareStore(t, api, &recordingNav{}, boom)

			assert.Panics(t, func() {
				_ = s.Login(context.Background(), service.Credentials{Email: "ada@example.com", Password: tt.password})
			})

			snap := s.Snapshot()
			assert.False(t, snap.Loading)
			assert.Equal(t, tt.authed, snap.IsAuthenticated)
		})
	}
}

func TestOnTeardown(t *testing.T) {
	h := newHarness(t, nil)
	var calls atomic.Int32
	h.store.OnTeardown(func() { calls.Add(1) })

	// Nothing to tear down while anonymous.
	require.NoError(t, h.store.Logout(context.Background()))
	assert.Equal(t, int32(0), calls.Load())

	h.login(t)
	require.NoError(t, h.store.Logout(context.Background()))
	assert.Equal(t, int32(1), calls.Load())

	h.login(t)
	assert.True(t, h.store.ExpireSession(context.Background()))
	assert.False(t, h.store.ExpireSession(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

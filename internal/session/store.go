// Package session owns the client's authentication state and credential.
//
// Exactly one Store exists per running client. It is created by app.New,
// initialised with Restore, and reset on logout or when the server rejects
// the credential. Only the Store mutates the session and the credential;
// everything else reads them.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"taskmate/internal/apperr"
	"taskmate/internal/credential"
	"taskmate/internal/notify"
	"taskmate/internal/service"
)

// State is the position in the session state machine.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	LoggingOut
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case LoggingOut:
		return "logging out"
	default:
		return "anonymous"
	}
}

// Messages shown to the user.
const (
	MsgLoginFailed    = "Invalid credentials or server error."
	MsgRegisterFailed = "An error occurred during registration."
	MsgLoggedIn       = "Logged in successfully."
	MsgRegistered     = "Registration successful."
	MsgLoggedOut      = "You have been logged out."
	MsgSessionExpired = "Session expired. Please log in again."
	MsgNoSession      = "No active session. Please log in."
	MsgVerifyFailed   = "Could not verify session."
)

// Default route names used when Options leaves them empty.
const (
	DefaultLandingRoute = "tasks"
	DefaultPublicRoute  = "home"
)

// Navigator moves the client to a named route.
type Navigator interface {
	Push(ctx context.Context, name string) error
}

// Session is a point-in-time view of the store.
type Session struct {
	User            service.UserProfile
	IsAuthenticated bool
	Loading         bool
	Error           *apperr.Error
	State           State
}

// Options configures a Store.
type Options struct {
	API         service.AuthAPI
	Credentials credential.Store
	Navigator   Navigator
	Notifier    notify.Notifier
	Logger      zerolog.Logger

	// LandingRoute is entered after login/register; PublicRoute after logout.
	LandingRoute string
	PublicRoute  string
}

// Store is the session state machine.
type Store struct {
	api      service.AuthAPI
	creds    credential.Store
	nav      Navigator
	notifier notify.Notifier
	log      zerolog.Logger
	landing  string
	public   string

	interceptorOnce sync.Once

	hookMu   sync.Mutex
	teardown []func()

	mu       sync.Mutex
	state    State
	user     service.UserProfile
	err      *apperr.Error
	inflight int
	token    *oauth2.Token
	resolved bool
}

// New creates an anonymous Store. Call Restore to pick up a persisted
// credential.
func New(opts Options) *Store {
	s := &Store{
		api:      opts.API,
		creds:    opts.Credentials,
		nav:      opts.Navigator,
		notifier: opts.Notifier,
		log:      opts.Logger,
		landing:  opts.LandingRoute,
		public:   opts.PublicRoute,
	}
	if s.creds == nil {
		s.creds = credential.NewMemoryStore(nil)
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.landing == "" {
		s.landing = DefaultLandingRoute
	}
	if s.public == "" {
		s.public = DefaultPublicRoute
	}
	return s
}

// Restore loads the persisted credential so it is attached to the first
// request. The profile is not persisted; FetchUserState re-derives it.
// An expired or unreadable credential is discarded.
func (s *Store) Restore() error {
	tok, err := s.creds.Load()
	if errors.Is(err, credential.ErrNoCredential) {
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable credential")
		s.clearStoredCredential()
		return err
	}
	if !tok.Valid() {
		s.log.Debug().Msg("discarding expired credential")
		s.clearStoredCredential()
		return nil
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{
		User:            s.user,
		IsAuthenticated: s.user != nil,
		Loading:         s.inflight > 0,
		Error:           s.err,
		State:           s.state,
	}
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// User returns the signed-in profile, or nil.
func (s *Store) User() service.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Err returns the last recorded failure, or nil.
func (s *Store) Err() *apperr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Resolved reports whether the session state is known without asking the
// server: authenticated, or settled as anonymous by a failed verification,
// a logout, or an expiry.
func (s *Store) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil || s.resolved
}

// HasCredential reports whether a credential is held.
func (s *Store) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// Credential returns a copy of the held credential, or nil.
func (s *Store) Credential() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	tok := *s.token
	return &tok
}

// OnTeardown registers f to run after every logout or expiry, once the
// session has been cleared. Data owned by the session subscribes here.
func (s *Store) OnTeardown(f func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.teardown = append(s.teardown, f)
}

func (s *Store) runTeardown() {
	s.hookMu.Lock()
	hooks := append([]func(){}, s.teardown...)
	s.hookMu.Unlock()
	for _, f := range hooks {
		f()
	}
}

type credentialKey struct{}

// withCredential pins tok for one request, overriding the held credential.
func withCredential(ctx context.Context, tok *oauth2.Token) context.Context {
	return context.WithValue(ctx, credentialKey{}, tok)
}

// AttachCredential is the HTTP adapter's pre-send hook: it sets the bearer
// header from the current credential. Requests without a usable credential
// go out bare and the server decides.
func (s *Store) AttachCredential(req *http.Request) error {
	tok, _ := req.Context().Value(credentialKey{}).(*oauth2.Token)
	if tok == nil {
		s.mu.Lock()
		tok = s.token
		s.mu.Unlock()
	}
	if tok.Valid() {
		tok.SetAuthHeader(req)
	}
	return nil
}

// Login authenticates with credentials.
func (s *Store) Login(ctx context.Context, creds service.Credentials) error {
	return s.authenticate(ctx, "login", MsgLoginFailed, MsgLoggedIn, func(ctx context.Context) (service.AuthResult, error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account; on success the user is signed in at once.
func (s *Store) Register(ctx context.Context, reg service.Registration) error {
	return s.authenticate(ctx, "register", MsgRegisterFailed, MsgRegistered, func(ctx context.Context) (service.AuthResult, error) {
		return s.api.Register(ctx, reg)
	})
}

func (s *Store) authenticate(ctx context.Context, op, fallback, success string, call func(context.Context) (service.AuthResult, error)) error {
	s.mu.Lock()
	s.err = nil
	s.inflight++
	if s.user == nil {
		s.state = Authenticating
	}
	s.mu.Unlock()
	defer s.done()

	res, err := call(ctx)
	if err != nil {
		aerr := apperr.FromHTTP(op, err, fallback)
		s.mu.Lock()
		s.err = aerr
		if s.user == nil {
			s.state = Anonymous
		}
		s.mu.Unlock()

		s.log.Debug().Err(err).Str("op", op).Str("kind", aerr.Kind.String()).Msg("authentication failed")
		s.notifier.Notify(notify.Notification{Level: notify.Error, Message: aerr.Message})
		return aerr
	}

	tok := credential.FromServerToken(res.Token)
	s.mu.Lock()
	s.user = res.User
	s.token = tok
	s.state = Authenticated
	s.resolved = true
	s.mu.Unlock()

	if err := s.creds.Save(tok); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist credential")
	}
	s.log.Info().Str("user", res.User.Email()).Str("op", op).Msg("signed in")

	s.navigate(ctx, s.landing)
	msg := success
	if res.Message != "" {
		msg = res.Message
	}
	s.notifier.Notify(notify.Notification{Level: notify.Success, Message: msg})
	return nil
}

// done marks the end of one in-flight action.
func (s *Store) done() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// FetchUserState verifies the session with the server. It is a no-op when
// already authenticated and makes no request when no credential is held.
// A failure leaves the session anonymous with the reason recorded; a 401
// also destroys the credential. It never navigates or notifies.
func (s *Store) FetchUserState(ctx context.Context) error {
	s.mu.Lock()
	if s.user != nil {
		s.mu.Unlock()
		return nil
	}
	s.err = nil
	if !s.token.Valid() {
		stale := s.token != nil
		aerr := apperr.New(apperr.SessionInvalid, "fetchUserState", MsgNoSession)
		s.token = nil
		s.state = Anonymous
		s.resolved = true
		s.err = aerr
		s.mu.Unlock()
		if stale {
			s.clearStoredCredential()
		}
		return aerr
	}
	s.state = Authenticating
	s.inflight++
	s.mu.Unlock()
	defer s.done()

	user, err := s.api.Me(ctx)
	if err != nil {
		aerr := apperr.FromHTTP("fetchUserState", err, MsgVerifyFailed)
		rejected := aerr.Kind == apperr.Authentication
		if rejected {
			aerr = &apperr.Error{Kind: apperr.SessionInvalid, Op: aerr.Op, Message: aerr.Message, Status: aerr.Status, Err: aerr.Err}
		}

		s.mu.Lock()
		s.user = nil
		s.state = Anonymous
		s.resolved = true
		s.err = aerr
		if rejected {
			s.token = nil
		}
		s.mu.Unlock()

		if rejected {
			s.clearStoredCredential()
		}
		s.log.Debug().Err(err).Str("kind", aerr.Kind.String()).Msg("session verification failed")
		return aerr
	}

	s.mu.Lock()
	s.user = user
	s.state = Authenticated
	s.resolved = true
	s.mu.Unlock()
	return nil
}

// Logout signs out. Local state is cleared first and the client lands on
// the public route; the server is told afterwards on a best-effort basis.
// When there is no session at all it only ensures the public route. A held
// credential counts as a session even before it has been verified, so the
// server is still told about it.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil && s.token == nil {
		s.state = Anonymous
		s.resolved = true
		s.mu.Unlock()
		s.navigate(ctx, s.public)
		return nil
	}
	tok := s.token
	s.teardownLocked(nil)
	s.mu.Unlock()

	s.clearStoredCredential()
	s.runTeardown()
	s.navigate(ctx, s.public)
	s.notifier.Notify(notify.Notification{Level: notify.Info, Message: MsgLoggedOut})

	if tok.Valid() {
		if err := s.api.Logout(withCredential(ctx, tok)); err != nil {
			s.log.Warn().Err(err).Msg("server logout failed")
		}
	}

	s.finishLogout()
	return nil
}

// ExpireSession is the forced logout after the server rejected the
// credential. Only the first caller while authenticated performs it; the
// return value reports whether this call did. The credential is already
// invalid, so the server is not told.
func (s *Store) ExpireSession(ctx context.Context) bool {
	s.mu.Lock()
	if s.user == nil || s.state == LoggingOut {
		s.mu.Unlock()
		return false
	}
	s.teardownLocked(apperr.New(apperr.SessionInvalid, "expireSession", MsgSessionExpired))
	s.mu.Unlock()

	s.log.Info().Msg("session expired")
	s.clearStoredCredential()
	s.runTeardown()
	s.navigate(ctx, s.public)
	s.finishLogout()
	return true
}

// teardownLocked resets the session. s.mu must be held.
func (s *Store) teardownLocked(reason *apperr.Error) {
	s.state = LoggingOut
	s.user = nil
	s.token = nil
	s.err = reason
	s.resolved = true
}

func (s *Store) finishLogout() {
	s.mu.Lock()
	if s.state == LoggingOut {
		s.state = Anonymous
	}
	s.mu.Unlock()
}

func (s *Store) navigate(ctx context.Context, route string) {
	if s.nav == nil {
		return
	}
	if err := s.nav.Push(ctx, route); err != nil {
		s.log.Warn().Err(err).Str("route", route).Msg("navigation failed")
	}
}

func (s *Store) clearStoredCredential() {
	if err := s.creds.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("failed to remove stored credential")
	}
}

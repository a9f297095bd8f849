// Package app builds the client: one HTTP adapter, one session store, one
// task store and one router, wired together explicitly.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"taskmate/internal/backend/restapi"
	"taskmate/internal/config"
	"taskmate/internal/credential"
	"taskmate/internal/httpclient"
	"taskmate/internal/notify"
	"taskmate/internal/router"
	"taskmate/internal/service"
	"taskmate/internal/session"
	"taskmate/internal/tasks"
)

// App is a running client.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Notifier notify.Notifier
	HTTP     *httpclient.Client
	API      service.API
	Router   *router.Router
	Session  *session.Store
	Tasks    *tasks.Store
}

type options struct {
	httpClient  *http.Client
	credentials credential.Store
	notifier    notify.Notifier
	logger      *zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCredentialStore replaces the token file store.
func WithCredentialStore(s credential.Store) Option {
	return func(o *options) { o.credentials = s }
}

// WithNotifier replaces the terminal notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithLogger replaces the logger built from cfg.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.logger = &log }
}

// New builds the client from cfg and restores any persisted credential.
// Notifications go to out and errOut; logs go to errOut.
func New(cfg *config.Config, out, errOut io.Writer, opts ...Option) (*App, error) {
	if u, err := url.ParseRequestURI(cfg.APIURL); err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid api_url %q", cfg.APIURL)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := cfg.Logger(errOut)
	if o.logger != nil {
		log = *o.logger
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = notify.NewWriter(out, errOut, cfg.Quiet)
	}
	creds := o.credentials
	if creds == nil {
		creds = credential.NewFileStore(cfg.TokenPath())
	}

	hcOpts := []httpclient.Option{httpclient.WithLogger(log)}
	if o.httpClient != nil {
		hcOpts = append(hcOpts, httpclient.WithHTTPClient(o.httpClient))
	}
	hc := httpclient.New(cfg.APIURL, hcOpts...)
	api := restapi.New(hc, cfg.Timeout)

	r := router.New(router.DefaultRoutes(), router.WithLogger(log))
	sess := session.New(session.Options{
		API:          api,
		Credentials:  creds,
		Navigator:    r,
		Notifier:     notifier,
		Logger:       log,
		LandingRoute: router.Landing,
		PublicRoute:  router.Home,
	})
	r.BeforeEach(router.NewGuard(sess))
	hc.BeforeSend(sess.AttachCredential)
	session.InstallExpiryInterceptor(hc, sess, notifier)

	if err := sess.Restore(); err != nil {
		log.Warn().Err(err).Msg("starting without a stored session")
	}

	ts := tasks.New(api, sess, notifier, log)
	sess.OnTeardown(ts.Reset)

	return &App{
		Config:   cfg,
		Log:      log,
		Notifier: notifier,
		HTTP:     hc,
		API:      api,
		Router:   r,
		Session:  sess,
		Tasks:    ts,
	}, nil
}

// Enter navigates to the named route and returns the route landed on.
func (a *App) Enter(ctx context.Context, name string) (router.Route, error) {
	return a.Router.Navigate(ctx, name)
}

// Close releases network resources.
func (a *App) Close() {
	a.HTTP.Close()
}

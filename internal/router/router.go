// Package router holds the route table and runs before-each guards on
// every navigation.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Route names.
const (
	Home     = "home"
	Login    = "login"
	Register = "register"
	Tasks    = "tasks"
	Profile  = "profile"
)

// Landing is the route an authenticated user is sent to.
const Landing = Tasks

// maxRedirects bounds redirect chains so a misconfigured guard cannot loop.
const maxRedirects = 5

var (
	// ErrUnknownRoute is returned when navigating to a name not in the table.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrRedirectLoop is returned when guards keep redirecting.
	ErrRedirectLoop = errors.New("too many redirects")
)

// Route is a named destination and its access requirements.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	GuestOnly    bool
}

// DefaultRoutes returns the client's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: Home, Path: "/"},
		{Name: Login, Path: "/login", GuestOnly: true},
		{Name: Register, Path: "/register", GuestOnly: true},
		{Name: Tasks, Path: "/tasks", RequiresAuth: true},
		{Name: Profile, Path: "/profile", RequiresAuth: true},
	}
}

// Guard decides whether navigation from one route to another may proceed.
// It returns the name of a route to redirect to, or "" to allow.
type Guard func(ctx context.Context, to, from Route) (redirect string, err error)

// Router tracks the current route.
type Router struct {
	mu      sync.RWMutex
	routes  map[string]Route
	guards  []Guard
	current Route
	log     zerolog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used to trace navigation.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Router) { r.log = log }
}

// New creates a Router over routes. The initial route is empty.
func New(routes []Route, opts ...Option) *Router {
	r := &Router{
		routes: make(map[string]Route, len(routes)),
		log:    zerolog.Nop(),
	}
	for _, rt := range routes {
		r.routes[rt.Name] = rt
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BeforeEach registers a guard. Guards run in registration order; the first
// redirect wins.
func (r *Router) BeforeEach(g Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, g)
}

// Lookup returns the route called name.
func (r *Router) Lookup(name string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[name]
	return rt, ok
}

// Current returns the route last landed on.
func (r *Router) Current() Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Navigate runs the guards for name, follows redirects, and returns the
// route actually landed on.
func (r *Router) Navigate(ctx context.Context, name string) (Route, error) {
	r.mu.RLock()
	guards := append([]Guard(nil), r.guards...)
	from := r.current
	r.mu.RUnlock()

	target := name
	for hop := 0; hop <= maxRedirects; hop++ {
		to, ok := r.Lookup(target)
		if !ok {
			return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, target)
		}

		redirect, err := runGuards(ctx, guards, to, from)
		if err != nil {
			return Route{}, err
		}
		if redirect == "" {
			r.mu.Lock()
			r.current = to
			r.mu.Unlock()
			r.log.Debug().Str("from", from.Name).Str("to", to.Name).Msg("navigated")
			return to, nil
		}

		r.log.Debug().Str("to", to.Name).Str("redirect", redirect).Msg("navigation redirected")
		target = redirect
	}
	return Route{}, fmt.Errorf("%w: %s", ErrRedirectLoop, name)
}

// Push navigates to name, discarding the landed route.
func (r *Router) Push(ctx context.Context, name string) error {
	_, err := r.Navigate(ctx, name)
	return err
}

func runGuards(ctx context.Context, guards []Guard, to, from Route) (string, error) {
	for _, g := range guards {
		redirect, err := g(ctx, to, from)
		if err != nil {
			return "", err
		}
		if redirect != "" && redirect != to.Name {
			return redirect, nil
		}
	}
	return "", nil
}

// Package restapi implements service.API over the task service's HTTP API.
package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"taskmate/internal/httpclient"
	"taskmate/internal/service"
)

// DefaultTimeout is the timeout for API calls when none is configured.
const DefaultTimeout = 10 * time.Second

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	mePath       = "/auth/me"
	logoutPath   = "/auth/logout"
	tasksPath    = "/tasks"
)

// ErrMissingToken is returned when login or register succeed without a token.
var ErrMissingToken = errors.New("server response has no token")

// ErrMissingUser is returned when an auth response carries no user.
var ErrMissingUser = errors.New("server response has no user")

// Client implements service.API. All calls go through the HTTP adapter, so
// its hooks (credential, expiry) apply to every request.
type Client struct {
	http    *httpclient.Client
	timeout time.Duration
}

var _ service.API = (*Client)(nil)

// New creates a client on top of the adapter. timeout bounds each call;
// zero selects DefaultTimeout.
func New(hc *httpclient.Client, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: hc, timeout: timeout}
}

type authResponse struct {
	User    service.UserProfile `json:"user"`
	Token   string              `json:"token"`
	Message string              `json:"message"`
}

type userResponse struct {
	User service.UserProfile `json:"user"`
}

type taskResponse struct {
	Task *service.Task `json:"task"`
}

type tasksResponse struct {
	Tasks []service.Task `json:"tasks"`
}

// Login implements service.AuthAPI.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.AuthResult, error) {
	return c.authenticate(ctx, loginPath, creds)
}

// Register implements service.AuthAPI.
func (c *Client) Register(ctx context.Context, reg service.Registration) (service.AuthResult, error) {
	return c.authenticate(ctx, registerPath, reg)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (service.AuthResult, error) {
	var out authResponse
	if err := c.call(ctx, http.MethodPost, path, body, nil, &out); err != nil {
		return service.AuthResult{}, err
	}
	if out.User == nil {
		return service.AuthResult{}, ErrMissingUser
	}
	if out.Token == "" {
		return service.AuthResult{}, ErrMissingToken
	}
	return service.AuthResult{User: out.User, Token: out.Token, Message: out.Message}, nil
}

// Me implements service.AuthAPI.
func (c *Client) Me(ctx context.Context) (service.UserProfile, error) {
	var out userResponse
	if err := c.call(ctx, http.MethodGet, mePath, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, ErrMissingUser
	}
	return out.User, nil
}

// Logout implements service.AuthAPI.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, logoutPath, nil, nil, nil)
}

// ListTasks implements service.TaskAPI.
func (c *Client) ListTasks(ctx context.Context, filters service.Filters) ([]service.Task, error) {
	var out tasksResponse
	if err := c.call(ctx, http.MethodGet, tasksPath, nil, filters.Query(), &out); err != nil {
		return nil, err
	}
	if out.Tasks == nil {
		return []service.Task{}, nil
	}
	return out.Tasks, nil
}

// CreateTask implements service.TaskAPI.
func (c *Client) CreateTask(ctx context.Context, input service.TaskInput) (*service.Task, error) {
	var out taskResponse
	if err := c.call(ctx, http.MethodPost, tasksPath, input, nil, &out); err != nil {
		return nil, err
	}
	return usable(out.Task), nil
}

// UpdateTask implements service.TaskAPI.
func (c *Client) UpdateTask(ctx context.Context, id string, input service.TaskInput) (*service.Task, error) {
	var out taskResponse
	if err := c.call(ctx, http.MethodPut, taskPath(id), input, nil, &out); err != nil {
		return nil, err
	}
	return usable(out.Task), nil
}

// DeleteTask implements service.TaskAPI.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// call sends one request bounded by the client timeout and decodes the
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.Send(ctx, method, path, body, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

func taskPath(id string) string {
	return tasksPath + "/" + url.PathEscape(id)
}

// usable drops task payloads that cannot be placed in the collection.
func usable(t *service.Task) *service.Task {
	if t == nil || t.ID == "" {
		return nil
	}
	return t
}

// Package service defines the backend-agnostic interface for session and
// task operations.
package service

import (
	"encoding/json"
	"net/url"
	"time"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task represents a single task item. ID is assigned by the server.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts "_id" when "id" is absent.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	if t.ID == "" {
		t.ID = raw.MongoID
	}
	return nil
}

// TaskInput is the body of create and update requests.
// Nil fields are omitted so updates only touch what was set.
type TaskInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`

	// ID is ignored by the server; the assigned id comes back in the response.
	ID string `json:"id,omitempty"`
}

// Filters narrows a task listing. Empty fields are not sent.
type Filters struct {
	Status   string
	Priority string
	Search   string
	SortBy   string
}

// Query encodes the filters as URL query parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.SortBy != "" {
		q.Set("sortBy", f.SortBy)
	}
	return q
}

// UserProfile is the identity record returned by the server. Its shape is
// not validated beyond presence.
type UserProfile map[string]any

// ID returns the "id" or "_id" field when it is a string.
func (u UserProfile) ID() string {
	if id := u.str("id"); id != "" {
		return id
	}
	return u.str("_id")
}

// Name returns the "name" or "username" field.
func (u UserProfile) Name() string {
	if n := u.str("name"); n != "" {
		return n
	}
	return u.str("username")
}

// Email returns the "email" field.
func (u UserProfile) Email() string {
	return u.str("email")
}

func (u UserProfile) str(key string) string {
	s, _ := u[key].(string)
	return s
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the successful response of login and register.
type AuthResult struct {
	User    UserProfile
	Token   string
	Message string
}

// String returns a pointer to s, for building TaskInput values.
func String(s string) *string {
	return &s
}

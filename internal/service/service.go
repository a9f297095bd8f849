package service

import "context"

// AuthAPI covers the /auth endpoints.
type AuthAPI interface {
	// Login exchanges credentials for a user and a session token.
	Login(ctx context.Context, creds Credentials) (AuthResult, error)

	// Register creates an account and returns it already signed in.
	Register(ctx context.Context, reg Registration) (AuthResult, error)

	// Me returns the profile of the current credential's owner.
	Me(ctx context.Context) (UserProfile, error)

	// Logout tells the server the session is over.
	Logout(ctx context.Context) error
}

// TaskAPI covers the /tasks endpoints.
type TaskAPI interface {
	// ListTasks returns the user's tasks in server order.
	ListTasks(ctx context.Context, filters Filters) ([]Task, error)

	// CreateTask creates a task. The returned task is nil when the server
	// acknowledged the request without a usable task payload.
	CreateTask(ctx context.Context, input TaskInput) (*Task, error)

	// UpdateTask updates a task. The returned task may be nil as for CreateTask.
	UpdateTask(ctx context.Context, id string, input TaskInput) (*Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}

// API is the full remote surface used by the client.
type API interface {
	AuthAPI
	TaskAPI
}

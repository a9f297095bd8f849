// Package testutil provides testing utilities.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"taskmate/internal/service"
)

// Route keys used by Calls and Fail.
const (
	RouteLogin    = "POST /auth/login"
	RouteRegister = "POST /auth/register"
	RouteMe       = "GET /auth/me"
	RouteLogout   = "GET /auth/logout"
	RouteList     = "GET /tasks"
	RouteCreate   = "POST /tasks"
	RouteUpdate   = "PUT /tasks/{id}"
	RouteDelete   = "DELETE /tasks/{id}"
)

// Failure is an injected error response.
type Failure struct {
	Status  int
	Message string
}

type fakeUser struct {
	password string
	profile  service.UserProfile
}

// FakeAPI is an in-memory task service served over HTTP for testing.
type FakeAPI struct {
	mu     sync.Mutex
	users  map[string]*fakeUser      // email -> user
	tokens map[string]string         // token -> email
	tasks  map[string][]service.Task // email -> tasks
	calls  map[string]int            // route key -> count
	fail   map[string]Failure        // route key -> injected failure
	omit   bool

	server *httptest.Server
}

// NewFakeAPI starts a FakeAPI that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:  make(map[string]*fakeUser),
		tokens: make(map[string]string),
		tasks:  make(map[string][]service.Task),
		calls:  make(map[string]int),
		fail:   make(map[string]Failure),
	}

	r := mux.NewRouter()
	r.Use(f.record)
	r.HandleFunc("/auth/login", f.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", f.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", f.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", f.handleLogout).Methods(http.MethodGet)
	r.HandleFunc("/tasks", f.handleList).Methods(http.MethodGet)
	r.HandleFunc("/tasks", f.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", f.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id}", f.handleDelete).Methods(http.MethodDelete)

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// AddUser registers an account and returns its profile.
func (f *FakeAPI) AddUser(name, email, password string) service.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(name, email, password)
}

func (f *FakeAPI) addUserLocked(name, email, password string) service.UserProfile {
	profile := service.UserProfile{"id": uuid.NewString(), "name": name, "email": email}
	f.users[email] = &fakeUser{password: password, profile: profile}
	return profile
}

// IssueToken creates a valid session token for an existing user.
func (f *FakeAPI) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := uuid.NewString()
	f.tokens[tok] = email
	return tok
}

// RevokeTokens invalidates every session, as if they all expired.
func (f *FakeAPI) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]string)
}

// AddTask appends a task to a user's collection.
func (f *FakeAPI) AddTask(email string, task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.Status == "" {
		task.Status = service.StatusPending
	}
	f.tasks[email] = append(f.tasks[email], task)
}

// Tasks returns a copy of a user's collection as stored on the server.
func (f *FakeAPI) Tasks(email string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks[email]...)
}

// Fail makes route answer with status and message until cleared with
// a zero status.
func (f *FakeAPI) Fail(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, route)
		return
	}
	f.fail[route] = Failure{Status: status, Message: message}
}

// OmitTaskPayload makes create and update answer 2xx without a task.
func (f *FakeAPI) OmitTaskPayload(omit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omit = omit
}

// Calls returns how many requests hit route.
func (f *FakeAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// TotalCalls returns the number of requests served.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// record counts the request and serves an injected failure if one is set.
func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}

		f.mu.Lock()
		f.calls[key]++
		failure, failing := f.fail[key]
		f.mu.Unlock()

		if failing {
			writeJSON(w, failure.Status, messageBody(failure.Message))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorize resolves the bearer token to a user email.
func (f *FakeAPI) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	email, ok := f.tokens[tok]
	f.mu.Unlock()
	if tok == "" || !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Not authorized, token failed"))
		return "", false
	}
	return email, true
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("Invalid request body"))
		return
	}

	f.mu.Lock()
	u, ok := f.users[creds.Email]
	if !ok || u.password != creds.Password {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, messageBody("Invalid credentials"))
		return
	}
	tok := uuid.NewString()
	f.tokens[tok] = creds.Email
	profile := u.profile
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": profile, "token": tok, "message": "Login successful"})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg service.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("Invalid request body"))
		return
	}
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		writeJSON(w, http.StatusBadRequest, messageBody("Please provide name, email and password"))
		return
	}

	f.mu.Lock()
	if _, exists := f.users[reg.Email]; exists {
		f.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, messageBody("User already exists"))
		return
	}
	profile := f.addUserLocked(reg.Name, reg.Email, reg.Password)
	tok := uuid.NewString()
	f.tokens[tok] = reg.Email
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"user": profile, "token": tok})
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := f.authorize(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	profile := f.users[email].profile
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func (f *FakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	delete(f.tokens, tok)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, messageBody("Logged out"))
}

func (f *FakeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	email, ok := f.authorize(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	f.mu.Lock()
	result := []service.Task{}
	for _, t := range f.tasks[email] {
		if s := q.Get("status"); s != "" && t.Status != s {
			continue
		}
		if p := q.Get("priority"); p != "" && t.Priority != p {
			continue
		}
		if s := q.Get("search"); s != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(s)) {
			continue
		}
		result = append(result, t)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"tasks": result})
}

func (f *FakeAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := f.authorize(w, r)
	if !ok {
		return
	}
	var in service.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("Invalid request body"))
		return
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, messageBody("Title is required"))
		return
	}

	now := time.Now().UTC()
	task := service.Task{ID: uuid.NewString(), Status: service.StatusPending, CreatedAt: &now, UpdatedAt: &now}
	apply(&task, in)

	f.mu.Lock()
	f.tasks[email] = append(f.tasks[email], task)
	omit := f.omit
	f.mu.Unlock()

	if omit {
		writeJSON(w, http.StatusCreated, messageBody("Task created"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

func (f *FakeAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	email, ok := f.authorize(w, r)
	if !ok {
		return
	}
	var in service.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, messageBody("Invalid request body"))
		return
	}
	id := mux.Vars(r)["id"]

	f.mu.Lock()
	var updated *service.Task
	for i := range f.tasks[email] {
		if f.tasks[email][i].ID == id {
			apply(&f.tasks[email][i], in)
			now := time.Now().UTC()
			f.tasks[email][i].UpdatedAt = &now
			t := f.tasks[email][i]
			updated = &t
			break
		}
	}
	omit := f.omit
	f.mu.Unlock()

	if updated == nil {
		writeJSON(w, http.StatusNotFound, messageBody("Task not found"))
		return
	}
	if omit {
		writeJSON(w, http.StatusOK, messageBody("Task updated"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": updated})
}

func (f *FakeAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := f.authorize(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	f.mu.Lock()
	tasks := f.tasks[email]
	found := false
	for i, t := range tasks {
		if t.ID == id {
			f.tasks[email] = append(tasks[:i:i], tasks[i+1:]...)
			found = true
			break
		}
	}
	f.mu.Unlock()

	if !found {
		writeJSON(w, http.StatusNotFound, messageBody("Task not found"))
		return
	}
	writeJSON(w, http.StatusOK, messageBody("Task removed"))
}

func apply(t *service.Task, in service.TaskInput) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
}

func messageBody(msg string) map[string]string {
	if msg == "" {
		return map[string]string{}
	}
	return map[string]string{"message": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

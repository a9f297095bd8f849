// Package tasks holds the signed-in user's task collection and the actions
// that change it. The server is authoritative: the collection only ever
// reflects the last successful fetch or acknowledged mutation.
package tasks

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"taskmate/internal/apperr"
	"taskmate/internal/notify"
	"taskmate/internal/service"
)

// Messages shown to the user.
const (
	MsgAdded        = "Task added successfully!"
	MsgUpdated      = "Task updated successfully!"
	MsgDeleted      = "Task deleted successfully!"
	MsgFetchFailed  = "Failed to fetch tasks."
	MsgAddFailed    = "Failed to add task."
	MsgUpdateFailed = "Failed to update task."
	MsgDeleteFailed = "Failed to delete task."
)

// Session is the part of the session store the task store reads.
type Session interface {
	IsAuthenticated() bool
}

// Snapshot is a point-in-time view of the store.
type Snapshot struct {
	Tasks   []service.Task
	Loading bool
	Error   *apperr.Error
}

// Store is the task collection.
type Store struct {
	api      service.TaskAPI
	session  Session
	notifier notify.Notifier
	log      zerolog.Logger

	mu       sync.Mutex
	tasks    []service.Task
	inflight int
	err      *apperr.Error
}

// New creates an empty Store.
func New(api service.TaskAPI, session Session, notifier notify.Notifier, log zerolog.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Store{
		api:      api,
		session:  session,
		notifier: notifier,
		log:      log,
		tasks:    []service.Task{},
	}
}

// Tasks returns a copy of the collection.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Task(nil), s.tasks...)
}

// Find returns the task with id.
func (s *Store) Find(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i], true
	}
	return service.Task{}, false
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Tasks:   append([]service.Task(nil), s.tasks...),
		Loading: s.inflight > 0,
		Error:   s.err,
	}
}

// Err returns the last recorded failure, or nil.
func (s *Store) Err() *apperr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Reset empties the collection, as after a logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = []service.Task{}
	s.err = nil
}

// FetchTasks replaces the collection with the server's tasks matching
// filters. On failure the collection is emptied.
func (s *Store) FetchTasks(ctx context.Context, filters service.Filters) error {
	if err := s.begin("fetchTasks"); err != nil {
		return err
	}
	defer s.done()

	list, err := s.api.ListTasks(ctx, filters)
	if err != nil {
		s.mu.Lock()
		s.tasks = []service.Task{}
		s.mu.Unlock()
		return s.report("fetchTasks", err, MsgFetchFailed)
	}

	s.mu.Lock()
	s.tasks = append([]service.Task(nil), list...)
	s.mu.Unlock()
	s.log.Debug().Int("count", len(list)).Msg("tasks fetched")
	return nil
}

// AddTask creates a task and puts the server's copy first. Any id in
// input is ignored.
func (s *Store) AddTask(ctx context.Context, input service.TaskInput) (*service.Task, error) {
	if err := s.begin("addTask"); err != nil {
		return nil, err
	}
	defer s.done()

	input.ID = ""
	task, err := s.api.CreateTask(ctx, input)
	if err != nil {
		return nil, s.report("addTask", err, MsgAddFailed)
	}

	if task == nil {
		s.log.Warn().Str("op", "addTask").Msg("server acknowledged without a task; collection may be stale")
	} else {
		s.mu.Lock()
		s.tasks = append([]service.Task{*task}, s.tasks...)
		s.mu.Unlock()
	}
	s.notifier.Notify(notify.Notification{Level: notify.Success, Message: MsgAdded})
	return task, nil
}

// UpdateTask changes the task with id. The local entry, if any, is replaced
// in place by the server's copy.
func (s *Store) UpdateTask(ctx context.Context, id string, input service.TaskInput) (*service.Task, error) {
	if err := s.begin("updateTask"); err != nil {
		return nil, err
	}
	defer s.done()

	task, err := s.api.UpdateTask(ctx, id, input)
	if err != nil {
		return nil, s.report("updateTask", err, MsgUpdateFailed)
	}

	if task == nil {
		s.log.Warn().Str("op", "updateTask").Str("id", id).Msg("server acknowledged without a task; collection may be stale")
	} else {
		s.mu.Lock()
		if i := s.indexLocked(id); i >= 0 {
			s.tasks[i] = *task
		}
		s.mu.Unlock()
	}
	s.notifier.Notify(notify.Notification{Level: notify.Success, Message: MsgUpdated})
	return task, nil
}

// CompleteTask marks the task with id completed.
func (s *Store) CompleteTask(ctx context.Context, id string) (*service.Task, error) {
	return s.UpdateTask(ctx, id, service.TaskInput{Status: service.String(service.StatusCompleted)})
}

// DeleteTask removes the task with id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.begin("deleteTask"); err != nil {
		return err
	}
	defer s.done()

	if err := s.api.DeleteTask(ctx, id); err != nil {
		return s.report("deleteTask", err, MsgDeleteFailed)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	}
	s.mu.Unlock()
	s.notifier.Notify(notify.Notification{Level: notify.Success, Message: MsgDeleted})
	return nil
}

// begin checks the session and marks an action in flight. The previous
// error is cleared before the request starts.
func (s *Store) begin(op string) error {
	if !s.session.IsAuthenticated() {
		aerr := apperr.New(apperr.NotAuthenticated, op, apperr.MsgNotAuthenticated)
		s.mu.Lock()
		s.err = aerr
		s.mu.Unlock()
		return aerr
	}
	s.mu.Lock()
	s.err = nil
	s.inflight++
	s.mu.Unlock()
	return nil
}

func (s *Store) done() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// report records a failed action and tells the user, except for 401s:
// those end the session and are announced by the expiry interceptor.
func (s *Store) report(op string, err error, fallback string) error {
	aerr := apperr.FromHTTP(op, err, fallback)

	s.mu.Lock()
	s.err = aerr
	s.mu.Unlock()

	s.log.Debug().Err(err).Str("op", op).Str("kind", aerr.Kind.String()).Msg("task action failed")
	if aerr.Kind != apperr.Authentication {
		s.notifier.Notify(notify.Notification{Level: notify.Error, Message: aerr.Message})
	}
	return aerr
}

func (s *Store) indexLocked(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

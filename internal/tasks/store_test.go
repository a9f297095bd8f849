package tasks_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/internal/apperr"
	"taskmate/internal/backend/restapi"
	"taskmate/internal/credential"
	"taskmate/internal/httpclient"
	"taskmate/internal/notify"
	"taskmate/internal/service"
	"taskmate/internal/session"
	"taskmate/internal/tasks"
	"taskmate/internal/testutil"
)

const email = "ada@example.com"

type nopNav struct{}

func (nopNav) Push(context.Context, string) error { return nil }

type fixture struct {
	api     *testutil.FakeAPI
	client  *restapi.Client
	session *session.Store
	store   *tasks.Store
	notes   *notify.Recorder
}

// newFixture returns a task store whose session is signed in as email.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := testutil.NewFakeAPI(t)
	api.AddUser("Ada", email, "secret")

	notes := &notify.Recorder{}
	hc := httpclient.New(api.URL())
	client := restapi.New(hc, 0)
	sess := session.New(session.Options{
		API:         client,
		Credentials: credential.NewMemoryStore(nil),
		Navigator:   nopNav{},
		Notifier:    notes,
	})
	hc.BeforeSend(sess.AttachCredential)
	session.InstallExpiryInterceptor(hc, sess, notes)

	require.NoError(t, sess.Login(context.Background(), service.Credentials{Email: email, Password: "secret"}))
	notes.Reset()

	return &fixture{
		api:     api,
		client:  client,
		session: sess,
		store:   tasks.New(client, sess, notes, zerolog.Nop()),
		notes:   notes,
	}
}

func ids(list []service.Task) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestFetchTasks(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	f.api.AddTask(email, service.Task{ID: "t2", Title: "two", Status: service.StatusCompleted})

	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))
	assert.Equal(t, []string{"t1", "t2"}, ids(f.store.Tasks()))

	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{Status: service.StatusCompleted}))
	assert.Equal(t, []string{"t2"}, ids(f.store.Tasks()))

	snap := f.store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Error)
	assert.Empty(t, f.notes.All())
}

func TestFetchTasks_FailureEmptiesCollection(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))
	require.Len(t, f.store.Tasks(), 1)

	f.api.Fail(testutil.RouteList, http.StatusInternalServerError, "")
	err := f.store.FetchTasks(context.Background(), service.Filters{})
	require.Error(t, err)

	assert.Empty(t, f.store.Tasks())
	require.NotNil(t, f.store.Err())
	assert.Equal(t, tasks.MsgFetchFailed, f.store.Err().Message)
	assert.Equal(t, 1, f.notes.Count(notify.Error, tasks.MsgFetchFailed))
}

func TestFetchTasks_UnauthorizedIsNotNotifiedTwice(t *testing.T) {
	f := newFixture(t)
	f.api.RevokeTokens()

	err := f.store.FetchTasks(context.Background(), service.Filters{})
	require.Error(t, err)
	assert.True(t, apperr.IsUnauthorized(err))

	assert.NotNil(t, f.store.Err())
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, 1, f.notes.Count(notify.Error, ""))
	assert.Equal(t, 1, f.notes.Count(notify.Error, session.MsgSessionExpired))
}

func TestAddTask_PrependsServerTask(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))

	task, err := f.store.AddTask(context.Background(), service.TaskInput{
		ID:    "client-chosen",
		Title: service.String("two"),
	})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.NotEqual(t, "client-chosen", task.ID)

	got := f.store.Tasks()
	require.Len(t, got, 2)
	assert.Equal(t, task.ID, got[0].ID)
	assert.Equal(t, "two", got[0].Title)
	assert.Equal(t, "t1", got[1].ID)

	assert.Equal(t, 1, f.notes.Count(notify.Success, tasks.MsgAdded))
}

func TestAddTask_MissingPayloadStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.api.OmitTaskPayload(true)

	task, err := f.store.AddTask(context.Background(), service.TaskInput{Title: service.String("two")})
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Empty(t, f.store.Tasks())
	assert.Equal(t, 1, f.notes.Count(notify.Success, tasks.MsgAdded))
}

func TestAddTask_ServerRejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.AddTask(context.Background(), service.TaskInput{Title: service.String("  ")})
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, 1, f.notes.Count(notify.Error, "Title is required"))
	assert.Empty(t, f.store.Tasks())
}

func TestUpdateTask_InPlace(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	f.api.AddTask(email, service.Task{ID: "t2", Title: "two"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))

	_, err := f.store.UpdateTask(context.Background(), "t1", service.TaskInput{Title: service.String("uno")})
	require.NoError(t, err)

	got := f.store.Tasks()
	assert.Equal(t, []string{"t1", "t2"}, ids(got))
	assert.Equal(t, "uno", got[0].Title)
	assert.Equal(t, 1, f.notes.Count(notify.Success, tasks.MsgUpdated))
}

func TestUpdateTask_NotHeldLocally(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})

	_, err := f.store.UpdateTask(context.Background(), "t1", service.TaskInput{Title: service.String("uno")})
	require.NoError(t, err)
	assert.Empty(t, f.store.Tasks())
}

func TestUpdateTask_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.UpdateTask(context.Background(), "missing", service.TaskInput{Title: service.String("x")})
	require.Error(t, err)
	assert.Equal(t, "Task not found", err.Error())
	assert.Equal(t, 1, f.notes.Count(notify.Error, "Task not found"))
}

func TestCompleteTask(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))

	task, err := f.store.CompleteTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, service.StatusCompleted, task.Status)

	local, ok := f.store.Find("t1")
	require.True(t, ok)
	assert.Equal(t, service.StatusCompleted, local.Status)
	assert.Equal(t, service.StatusCompleted, f.api.Tasks(email)[0].Status)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	f.api.AddTask(email, service.Task{ID: "t2", Title: "two"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))

	require.NoError(t, f.store.DeleteTask(context.Background(), "t1"))

	assert.Equal(t, []string{"t2"}, ids(f.store.Tasks()))
	assert.Nil(t, f.store.Err())
	assert.Equal(t, 1, f.notes.Count(notify.Success, tasks.MsgDeleted))
	assert.Equal(t, []string{"t2"}, ids(f.api.Tasks(email)))

	_, ok := f.store.Find("t1")
	assert.False(t, ok)
}

func TestDeleteTask_FailureKeepsCollection(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})
	require.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))
	f.api.Fail(testutil.RouteDelete, http.StatusInternalServerError, "")

	require.Error(t, f.store.DeleteTask(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, ids(f.store.Tasks()))
	assert.Equal(t, 1, f.notes.Count(notify.Error, tasks.MsgDeleteFailed))
}

type staticSession bool

func (s staticSession) IsAuthenticated() bool { return bool(s) }

func TestActions_RequireAuthentication(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	client := restapi.New(httpclient.New(api.URL()), 0)
	notes := &notify.Recorder{}
	store := tasks.New(client, staticSession(false), notes, zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"fetch", func() error { return store.FetchTasks(ctx, service.Filters{}) }},
		{"add", func() error { _, err := store.AddTask(ctx, service.TaskInput{Title: service.String("x")}); return err }},
		{"update", func() error { _, err := store.UpdateTask(ctx, "t1", service.TaskInput{}); return err }},
		{"complete", func() error { _, err := store.CompleteTask(ctx, "t1"); return err }},
		{"delete", func() error { return store.DeleteTask(ctx, "t1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, apperr.NotAuthenticated, apperr.KindOf(err))
			assert.Equal(t, apperr.MsgNotAuthenticated, err.Error())
		})
	}

	assert.Zero(t, api.TotalCalls())
	assert.Empty(t, notes.All())
}

func TestFetchTasks_ConcurrentCallsSettleLoading(t *testing.T) {
	f := newFixture(t)
	f.api.AddTask(email, service.Task{ID: "t1", Title: "one"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.FetchTasks(context.Background(), service.Filters{}))
		}()
	}
	wg.Wait()

	snap := f.store.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"t1"}, ids(snap.Tasks))
	assert.Equal(t, 8, f.api.Calls(testutil.RouteList))
}

func TestActions_PanickingNotifierClearsLoading(t *testing.T) {
	f := newFixture(t)
	boom := notify.Func(func(notify.Notification) { panic("notifier failed") })
	store := tasks.New(f.client, f.session, boom, zerolog.Nop())

	assert.Panics(t, func() {
		_, _ = store.AddTask(context.Background(), service.TaskInput{Title: service.String("Buy milk")})
	})
	assert.False(t, store.Snapshot().Loading)
	assert.Len(t, store.Tasks(), 1)

	f.api.Fail(testutil.RouteList, http.StatusInternalServerError, "boom")
	assert.Panics(t, func() {
		_ = store.FetchTasks(context.Background(), service.Filters{})
	})
	assert.False(t, store.Snapshot().Loading)
}

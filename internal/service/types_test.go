package service_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/internal/service"
)

func TestTask_UnmarshalIDFallback(t *testing.T) {
	var withID, withMongoID, withBoth service.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","title":"A"}`), &withID))
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"m1","title":"B","status":"pending"}`), &withMongoID))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t2","_id":"m2"}`), &withBoth))

	assert.Equal(t, "t1", withID.ID)
	assert.Equal(t, "A", withID.Title)
	assert.Equal(t, "m1", withMongoID.ID)
	assert.Equal(t, service.StatusPending, withMongoID.Status)
	assert.Equal(t, "t2", withBoth.ID)
}

func TestTaskInput_OmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(service.TaskInput{Status: service.String(service.StatusCompleted)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"completed"}`, string(data))
}

func TestFilters_Query(t *testing.T) {
	assert.Empty(t, service.Filters{}.Query())

	q := service.Filters{Status: "pending", Search: "milk", SortBy: "dueDate"}.Query()
	assert.Equal(t, "search=milk&sortBy=dueDate&status=pending", q.Encode())
}

func TestUserProfile_Accessors(t *testing.T) {
	u := service.UserProfile{"_id": "u1", "username": "ada", "email": "ada@example.com", "age": 36}

	assert.Equal(t, "u1", u.ID())
	assert.Equal(t, "ada", u.Name())
	assert.Equal(t, "ada@example.com", u.Email())

	assert.Empty(t, service.UserProfile{"id": 7}.ID())
}

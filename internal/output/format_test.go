package output_test

import (
	"bytes"
	"testing"
	"time"

	"taskmate/internal/output"
	"taskmate/internal/service"
	"taskmate/internal/testutil"
)

func sampleTasks() []service.Task {
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	return []service.Task{
		{ID: "t1", Title: "Buy milk", Status: service.StatusPending},
		{ID: "t2", Title: "Write report", Status: service.StatusInProgress, Priority: "high", DueDate: &due},
		{ID: "t3", Title: "   ", Status: service.StatusCompleted},
		{ID: "t4", Title: "line\nbreak", Priority: "low"},
	}
}

func TestFormatTask(t *testing.T) {
	var buf bytes.Buffer
	for i, task := range sampleTasks() {
		output.FormatTask(&buf, i+1, task, false)
	}
	testutil.Golden(t, "tasks", buf.Bytes())
}

func TestFormatTask_WithIDs(t *testing.T) {
	var buf bytes.Buffer
	for i, task := range sampleTasks() {
		output.FormatTask(&buf, i+1, task, true)
	}
	testutil.Golden(t, "tasks_ids", buf.Bytes())
}

func TestFormatProfile(t *testing.T) {
	tests := []struct {
		name string
		user service.UserProfile
		want string
	}{
		{
			name: "full profile",
			user: service.UserProfile{"_id": "u1", "name": "Ada", "email": "ada@example.com"},
			want: "Ada <ada@example.com>\nid: u1\n",
		},
		{
			name: "name only",
			user: service.UserProfile{"username": "ada"},
			want: "ada\n",
		},
		{
			name: "empty",
			user: service.UserProfile{},
			want: "(unnamed)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			output.FormatProfile(&buf, tt.user)
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"taskmate/internal/app"
	"taskmate/internal/exitcode"
	"taskmate/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position in the unfiltered list, 0 if ID is set
	ID  string // task id
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. All digits → list number as printed by `taskmate list`
// 2. "#<id>" → task id (for ids that are all digits)
// 3. Anything else → task id
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	arg := strings.TrimSpace(args[0])
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %s", arg)
		}
		return TaskRef{Num: num}, nil
	}

	id := strings.TrimPrefix(arg, "#")
	if id == "" {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
	}
	return TaskRef{ID: id}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolveTaskID parses args and returns the referenced task id. A list
// number is resolved against a fresh unfiltered fetch. On failure it
// reports to errOut and returns a non-zero exit code.
func resolveTaskID(ctx context.Context, a *app.App, args []string, errOut io.Writer) (string, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.UserError
	}
	if ref.ID != "" {
		return ref.ID, exitcode.Success
	}

	// Fetch failures are already reported by the task store.
	if err := a.Tasks.FetchTasks(ctx, service.Filters{}); err != nil {
		return "", exitcode.FromError(err)
	}
	tasks := a.Tasks.Tasks()
	if ref.Num > len(tasks) {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.Num)
		return "", exitcode.UserError
	}
	return tasks[ref.Num-1].ID, exitcode.Success
}

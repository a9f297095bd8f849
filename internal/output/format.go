// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskmate/internal/service"
)

// DateLayout is the layout used for due dates, on input and output.
const DateLayout = "2006-01-02"

// FormatTask formats a task line for the list.
// Format: "{N:>4}  [{MARK}] {TITLE}[  ({PRIORITY}, due {DATE})][  #{ID}]\n"
func FormatTask(w io.Writer, num int, task service.Task, showID bool) {
	line := fmt.Sprintf("%4d  [%c] %s", num, statusMark(task.Status), normalizeTitle(task.Title))

	var details []string
	if task.Priority != "" {
		details = append(details, task.Priority)
	}
	if task.DueDate != nil {
		details = append(details, "due "+task.DueDate.UTC().Format(DateLayout))
	}
	if len(details) > 0 {
		line += "  (" + strings.Join(details, ", ") + ")"
	}
	if showID {
		line += "  #" + task.ID
	}
	fmt.Fprintln(w, line)
}

// FormatProfile formats the signed-in user for whoami.
func FormatProfile(w io.Writer, user service.UserProfile) {
	name := user.Name()
	if name == "" {
		name = "(unnamed)"
	}
	if email := user.Email(); email != "" {
		fmt.Fprintf(w, "%s <%s>\n", name, email)
	} else {
		fmt.Fprintln(w, name)
	}
	if id := user.ID(); id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
}

func statusMark(status string) rune {
	switch status {
	case service.StatusCompleted:
		return 'x'
	case service.StatusInProgress:
		return '~'
	default:
		return ' '
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// Package notify is the user-facing notification channel. Stores emit
// notifications; how they are shown is up to the Notifier.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Success
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notification is one message for the user.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// WriterNotifier prints notifications as terminal lines.
// Errors go to errOut as "error: <msg>"; info and success go to out
// unless quiet.
type WriterNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

// NewWriter creates a WriterNotifier.
func NewWriter(out, errOut io.Writer, quiet bool) *WriterNotifier {
	return &WriterNotifier{out: out, errOut: errOut, quiet: quiet}
}

// Notify implements Notifier.
func (w *WriterNotifier) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.Level == Error {
		fmt.Fprintf(w.errOut, "error: %s\n", n.Message)
		return
	}
	if !w.quiet {
		fmt.Fprintln(w.out, n.Message)
	}
}

// Recorder keeps notifications in memory (for testing).
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of every recorded notification.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Count returns how many notifications match level and message.
// An empty message matches any message.
func (r *Recorder) Count(level Level, message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.all {
		if x.Level == level && (message == "" || x.Message == message) {
			n++
		}
	}
	return n
}

// Reset forgets recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}

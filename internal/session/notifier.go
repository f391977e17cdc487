package session

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/connection"
)

// Notifier surfaces errors to the user
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(err error)

// Notify calls f(err)
func (f NotifierFunc) Notify(err error) {
	f(err)
}

// Title maps an error to the heading shown to the user
func Title(err error) string {
	var connErr *connection.ConnectionError
	switch {
	case errors.Is(err, capture.ErrNotConnected):
		return "Not connected"
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Error accessing microphone"
	case errors.As(err, &connErr):
		return "Connection error"
	default:
		return "Error"
	}
}

// ConsoleNotifier writes notifications, status lines and the transcript to a terminal
type ConsoleNotifier struct {
	out    io.Writer
	errOut io.Writer
	mu     sync.Mutex
	alert  *color.Color
	status *color.Color
	text   *color.Color
}

// NewConsoleNotifier creates a notifier writing status and transcript to out
// and error notifications to errOut
func NewConsoleNotifier(out, errOut io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{
		out:    out,
		errOut: errOut,
		alert:  color.New(color.FgRed, color.Bold),
		status: color.New(color.FgCyan),
		text:   color.New(color.FgWhite),
	}
}

// Notify prints err under its title
func (n *ConsoleNotifier) Notify(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alert.Fprintf(n.errOut, "%s: %v\n", Title(err), err)
}

// Status prints an informational line
func (n *ConsoleNotifier) Status(format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status.Fprintln(n.out, fmt.Sprintf(format, args...))
}

// Transcript prints the whole transcript
func (n *ConsoleNotifier) Transcript(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text.Fprintln(n.out, text)
}

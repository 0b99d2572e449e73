package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/cuemby/carebook/pkg/log"
)

// Level is the kind of a transient message
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient, user-facing message
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(n Notice)
}

// Success sends a success notice
func Success(n Notifier, format string, args ...interface{}) {
	n.Notify(Notice{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

// Error sends an error notice
func Error(n Notifier, format string, args ...interface{}) {
	n.Notify(Notice{Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

// Info sends an informational notice
func Info(n Notifier, format string, args ...interface{}) {
	n.Notify(Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// WriterNotifier prints notices one per line
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier prints to w
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (wn *WriterNotifier) Notify(n Notice) {
	wn.mu.Lock()
	defer wn.mu.Unlock()

	prefix := " "
	switch n.Level {
	case LevelSuccess:
		prefix = "✓"
	case LevelError:
		prefix = "✗"
	}
	fmt.Fprintf(wn.w, "%s %s\n", prefix, n.Message)

	logger := log.WithComponent("notify")
	logger.Debug().
		Str("level", n.Level.String()).
		Str("message", n.Message).
		Msg("notice")
}

// Recorder keeps notices in memory
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns every notice so far, oldest first
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Discard drops every notice
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice) {}

package history

import (
	"fmt"
	"strings"
	"time"
)

// Export prints at most this many entries.
const exportLimit = 50

type LogEntry struct {
	Seq       int     `json:"seq"`
	TS        string  `json:"ts"`
	Elapsed   float64 `json:"elapsed_seconds"`
	Operation string  `json:"operation"`
	TaskID    int64   `json:"task_id,omitempty"`
	Details   string  `json:"details,omitempty"`
}

// OperationLog is a bounded, append-only record of what happened this
// session. It is volatile; the durable audit trail is the events table.
type OperationLog struct {
	sessionID string
	startedAt time.Time
	entries   *Stack[LogEntry]
	seq       int
	now       func() time.Time
}

func NewOperationLog(sessionID string, capacity int, now func() time.Time) *OperationLog {
	if now == nil {
		now = time.Now
	}
	return &OperationLog{
		sessionID: sessionID,
		startedAt: now(),
		entries:   NewStack[LogEntry](capacity),
		now:       now,
	}
}

func (l *OperationLog) SessionID() string    { return l.sessionID }
func (l *OperationLog) StartedAt() time.Time { return l.startedAt }
func (l *OperationLog) Len() int             { return l.entries.Len() }

func (l *OperationLog) Log(operation string, taskID int64, details string) {
	l.seq++
	now := l.now()
	l.entries.Push(LogEntry{
		Seq:       l.seq,
		TS:        now.UTC().Format(time.RFC3339),
		Elapsed:   now.Sub(l.startedAt).Seconds(),
		Operation: operation,
		TaskID:    taskID,
		Details:   details,
	})
}

// Recent returns up to n entries still in the window, oldest first.
func (l *OperationLog) Recent(n int) []LogEntry {
	return l.entries.Recent(n)
}

// ByTask returns the retained entries touching one task, oldest first.
func (l *OperationLog) ByTask(taskID int64) []LogEntry {
	var out []LogEntry
	for _, e := range l.entries.Recent(l.entries.Len()) {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// Export renders the session log as text, most recent entry first.
func (l *OperationLog) Export() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session %s started %s\n", l.sessionID, l.startedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "%d operations recorded\n\n", l.seq)
	items := l.entries.Items()
	if len(items) > exportLimit {
		items = items[:exportLimit]
	}
	for _, e := range items {
		fmt.Fprintf(&b, "%8.1fs  %-8s", e.Elapsed, e.Operation)
		if e.TaskID > 0 {
			fmt.Fprintf(&b, "  #%d", e.TaskID)
		}
		if e.Details != "" {
			fmt.Fprintf(&b, "  %s", e.Details)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (l *OperationLog) Clear() {
	l.entries.Clear()
}

// Package activity keeps the dashboard's human-facing event log: a
// bounded, newest-first list of timestamped one-liners. Nothing reads it
// back programmatically; it exists for the operator.
package activity

import (
	"fmt"
	"sync"
	"time"
)

// MaxEntries is the number of log lines retained; older lines are evicted.
const MaxEntries = 40

// Log is a bounded append-only activity log. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []string
	now     func() time.Time
	notify  func(entry string)
}

// New returns an empty log using the wall clock.
func New() *Log {
	return &Log{now: time.Now}
}

// NewWithClock returns a log with an injected clock.
func NewWithClock(now func() time.Time) *Log {
	return &Log{now: now}
}

// OnAppend registers a callback invoked with each new entry, after it has
// been stored. Used by live views; at most one callback is kept.
func (l *Log) OnAppend(fn func(entry string)) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// Append formats and stores a new entry, newest first, with a local
// wall-clock prefix. Overflow evicts the oldest entry.
func (l *Log) Append(format string, args ...any) {
	l.mu.Lock()
	entry := fmt.Sprintf("[%s] %s", l.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	l.entries = append([]string{entry}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify(entry)
	}
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

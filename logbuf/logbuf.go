// Package logbuf keeps the most recent log entries in memory so the web UI can show them.
package logbuf

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultSize is how many entries are kept
const DefaultSize = 500

// Entry is one captured log line
type Entry struct {
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Buffer is a logrus hook holding the last N entries, oldest dropped first
type Buffer struct {
	mu    sync.Mutex
	items []Entry
	head  int
	size  int
}

// New returns a Buffer holding up to capacity entries
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &Buffer{items: make([]Entry, capacity)}
}

// Levels satisfies logrus.Hook; debug output stays out of the UI
func (b *Buffer) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel, log.InfoLevel}
}

// Fire satisfies logrus.Hook
func (b *Buffer) Fire(e *log.Entry) error {
	b.Add(Entry{
		Severity:  severity(e.Level),
		Timestamp: e.Time,
		Message:   strings.TrimRight(e.Message, "\r\n"),
	})
	return nil
}

// Add appends an entry, overwriting the oldest when full
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = e
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Entries returns a copy of the buffered entries, oldest first
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Clear drops everything
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		b.items[i] = Entry{}
	}
	b.head = 0
	b.size = 0
}

func severity(l log.Level) string {
	switch l {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return "error"
	case log.WarnLevel:
		return "warn"
	case log.DebugLevel, log.TraceLevel:
		return "debug"
	}
	return "info"
}

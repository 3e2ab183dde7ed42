package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventLevel classifies a progress event.
type EventLevel string

const (
	EventInfo     EventLevel = "info"
	EventSuccess  EventLevel = "success"
	EventWarning  EventLevel = "warning"
	EventError    EventLevel = "error"
	EventProgress EventLevel = "progress"
)

// Event is one progress notification: a stage name plus a human-readable detail.
type Event struct {
	Time     time.Time  `json:"timestamp"`
	Level    EventLevel `json:"level"`
	Stage    string     `json:"message"`
	Detail   string     `json:"details,omitempty"`
	Progress int        `json:"progress,omitempty"`
}

// Sink receives progress events. It is a one-way notification channel.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Notify emits an event on s, tolerating a nil sink.
func Notify(s Sink, level EventLevel, stage, format string, args ...interface{}) {
	if s == nil {
		return
	}
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	s.Emit(Event{Time: time.Now(), Level: level, Stage: stage, Detail: detail})
}

// ProcessLog keeps the most recent events of one client and mirrors them to slog.
type ProcessLog struct {
	clientID string
	limit    int

	mu     sync.Mutex
	events []Event
}

// NewProcessLog creates a log holding at most limit events.
func NewProcessLog(clientID string, limit int) *ProcessLog {
	if limit <= 0 {
		limit = 100
	}
	return &ProcessLog{clientID: clientID, limit: limit}
}

// Emit records the event and writes it to the default logger.
func (p *ProcessLog) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	p.mu.Lock()
	p.events = append(p.events, e)
	if over := len(p.events) - p.limit; over > 0 {
		p.events = append(p.events[:0:0], p.events[over:]...)
	}
	p.mu.Unlock()

	level := slog.LevelInfo
	switch e.Level {
	case EventWarning:
		level = slog.LevelWarn
	case EventError:
		level = slog.LevelError
	}
	L().Log(context.Background(), level, e.Stage, "client_id", p.clientID, "detail", e.Detail, "kind", string(e.Level))
}

// Progress records a progress event with a percentage.
func (p *ProcessLog) Progress(stage, detail string, percent int) {
	p.Emit(Event{Level: EventProgress, Stage: stage, Detail: detail, Progress: percent})
}

// Events returns a copy of the recorded events, oldest first.
func (p *ProcessLog) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Clear drops all recorded events.
func (p *ProcessLog) Clear() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

// Hub hands out one ProcessLog per client id.
type Hub struct {
	limit int

	mu   sync.Mutex
	logs map[string]*ProcessLog
}

// NewHub creates a hub whose logs keep at most limit events each.
func NewHub(limit int) *Hub {
	return &Hub{limit: limit, logs: make(map[string]*ProcessLog)}
}

// Get returns the log of clientID, creating it on first use.
func (h *Hub) Get(clientID string) *ProcessLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.logs[clientID]; ok {
		return l
	}
	l := NewProcessLog(clientID, h.limit)
	h.logs[clientID] = l
	return l
}

// Lookup returns the log of clientID without creating it.
func (h *Hub) Lookup(clientID string) (*ProcessLog, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.logs[clientID]
	return l, ok
}

// Remove forgets the log of clientID.
func (h *Hub) Remove(clientID string) {
	h.mu.Lock()
	delete(h.logs, clientID)
	h.mu.Unlock()
}

package log

import "sync"

// Logger receives protocol capture events.
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use
	// and should not block.
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MemoryLogger keeps events in memory. Used by tests and the peer console.
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

// Log appends the event.
func (m *MemoryLogger) Log(event Event) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (m *MemoryLogger) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Drops returns the recorded drop events in order.
func (m *MemoryLogger) Drops() []DropEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DropEvent
	for _, e := range m.events {
		if e.Drop != nil {
			out = append(out, *e.Drop)
		}
	}
	return out
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*MemoryLogger)(nil)
)

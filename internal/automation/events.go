package automation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEvents is the hard cap of the event log; the oldest entries are
// silently dropped once it is reached.
const MaxEvents = 10

// Event is one immutable automation log entry. Message is a final,
// already-formatted string; there is no structured payload.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// notifyBuffer bounds the queue between appenders and the notify
// dispatcher. A consumer stalled past this loses push delivery; the log
// itself still records every event and snapshots stay authoritative.
const notifyBuffer = 64

// Log is a bounded, newest-first record of automation actions.
//
// All methods are safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []Event
	queue  chan Event
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// SetNotify registers a callback for every append. Used to fan events
// out to WebSocket and MQTT. Delivery runs on a dedicated goroutine so
// a slow consumer can never stall an appender or the tick holding the
// controller lock. Must be set before the log is shared across
// goroutines, and at most once.
func (l *Log) SetNotify(fn func(Event)) {
	l.queue = make(chan Event, notifyBuffer)
	go func() {
		for ev := range l.queue {
			fn(ev)
		}
	}()
}

// Append records a new event with a unique ID and the wall-clock capture
// time, keeping at most MaxEvents entries, newest first. Append never
// blocks: push delivery is queued, and dropped if the queue is full.
func (l *Log) Append(message string) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Message:   message,
	}

	l.mu.Lock()
	l.events = append([]Event{ev}, l.events...)
	if len(l.events) > MaxEvents {
		l.events = l.events[:MaxEvents]
	}
	queue := l.queue
	l.mu.Unlock()

	if queue != nil {
		select {
		case queue <- ev:
		default:
		}
	}
	return ev
}

// Snapshot returns a copy of the log, newest first.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	cpy := make([]Event, len(l.events))
	copy(cpy, l.events)
	return cpy
}

// Len returns the current number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

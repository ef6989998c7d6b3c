package thing

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the published device map. Readers always observe the
// result of a fully completed tick or a fully completed manual update:
// ticks replace the whole map via Publish, and manual updates swap a
// single entry under the write lock. The key set is fixed at startup.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.RWMutex
	things map[string]*Thing
	logger Logger
}

// NewRegistry creates a registry seeded with the given roster.
// The initial things are cloned so the caller's map stays independent.
func NewRegistry(initial map[string]*Thing) *Registry {
	things := make(map[string]*Thing, len(initial))
	for id, t := range initial {
		things[id] = t.Clone()
	}
	return &Registry{
		things: things,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Get retrieves a thing by ID.
// Returns ErrThingNotFound if the thing does not exist.
// The returned thing is a clone; callers can safely modify it.
func (r *Registry) Get(id string) (*Thing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.things[id]
	if !ok {
		return nil, ErrThingNotFound
	}
	return t.Clone(), nil
}

// Snapshot returns a value copy of the published registry.
// Callers can safely modify the result.
func (r *Registry) Snapshot() map[string]Thing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]Thing, len(r.things))
	for id, t := range r.things {
		snap[id] = *t.Clone()
	}
	return snap
}

// WorkingCopy returns a deep copy of the registry for one tick to mutate.
// The simulator and rule engine own the copy exclusively; it only becomes
// visible to readers once handed back via Publish.
func (r *Registry) WorkingCopy() map[string]*Thing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	work := make(map[string]*Thing, len(r.things))
	for id, t := range r.things {
		work[id] = t.Clone()
	}
	return work
}

// Publish atomically replaces the published registry with the given map.
// The registry takes ownership; callers must not retain references.
func (r *Registry) Publish(things map[string]*Thing) {
	r.mu.Lock()
	r.things = things
	r.mu.Unlock()
}

// ApplyManual merges a partial update into the published thing, stamps its
// LastManualUpdate, and replaces the entry. On any error the registry is
// left unchanged. The updated thing is returned as a clone.
func (r *Registry) ApplyManual(id string, u Update, now time.Time) (*Thing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.things[id]
	if !ok {
		return nil, ErrThingNotFound
	}

	updated, err := Apply(existing, u, true, now)
	if err != nil {
		return nil, err
	}

	r.things[id] = updated
	r.logger.Debug("manual update applied", "id", id)
	return updated.Clone(), nil
}

// Count returns the number of registered things.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.things)
}

package gateway

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusStore persists the online flag of a station.
type StatusStore interface {
	SetOnline(ctx context.Context, id string, at time.Time) error
	SetOffline(ctx context.Context, id string) error
}

// Registry maps station identities to their live connection.
//
// Register and Unregister write the station's online flag while holding the
// write lock, so a displaced connection's offline write can never land after
// its successor's online write. WithSnapshot holds the read lock for the
// duration of the callback, which keeps the watchdog's sweep consistent with
// the set of live connections.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	store  StatusStore
	events Events
	logger Logger
	now    func() time.Time
}

// NewRegistry creates an empty Registry.
//
// Parameters:
//   - store: Persists the online flag on Register and Unregister
//
// Returns:
//   - *Registry: Registry with no live connections, a no-op logger and no-op events
func NewRegistry(store StatusStore) *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		store:  store,
		events: NoopEvents{},
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetEvents sets the sink for online and offline events.
func (r *Registry) SetEvents(events Events) {
	if events == nil {
		events = NoopEvents{}
	}
	r.events = events
}

// Register makes c the live connection for id and marks the station online.
// It returns the connection c displaced, or nil. The caller closes the
// displaced connection.
func (r *Registry) Register(ctx context.Context, id string, c *Conn) *Conn {
	r.mu.Lock()
	prev := r.conns[id]
	r.conns[id] = c
	err := r.store.SetOnline(ctx, id, r.now())
	r.mu.Unlock()

	if err != nil {
		// The next heartbeat or boot rewrites the flag.
		r.logger.Error("marking station online", "station_id", id, "error", err)
	}
	if prev == c {
		prev = nil
	}
	r.logger.Info("station connected", "station_id", id, "replaced", prev != nil)
	r.events.StationOnline(ctx, id)
	return prev
}

// Unregister removes c and marks the station offline, but only while c is
// still the live connection for id. It reports whether c was removed.
func (r *Registry) Unregister(ctx context.Context, id string, c *Conn) bool {
	r.mu.Lock()
	if cur, ok := r.conns[id]; !ok || cur != c {
		r.mu.Unlock()
		r.logger.Debug("stale unregister ignored", "station_id", id)
		return false
	}
	delete(r.conns, id)
	err := r.store.SetOffline(ctx, id)
	r.mu.Unlock()

	if err != nil {
		// The watchdog forces the flag down on its next sweep.
		r.logger.Error("marking station offline", "station_id", id, "error", err)
	}
	r.logger.Info("station disconnected", "station_id", id)
	r.events.StationOffline(ctx, id)
	return true
}

// Lookup returns the live connection for id, or nil.
func (r *Registry) Lookup(id string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SnapshotIDs returns the identities of all live connections, sorted.
func (r *Registry) SnapshotIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedIDs()
}

// WithSnapshot calls fn with the live identities while holding the read
// lock. No connection can register or unregister until fn returns.
func (r *Registry) WithSnapshot(fn func(ids []string) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.sortedIDs())
}

// Conns returns the live connections, ordered by station identity.
func (r *Registry) Conns() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, id := range r.sortedIDs() {
		out = append(out, r.conns[id])
	}
	return out
}

func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

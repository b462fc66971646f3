// Hub tracking live connections and their session subscriptions.
package hub

import (
	"log/slog"
	"sync"
	"time"
)

// Sender abstracts the outbound side of one transport connection.
type Sender interface {
	Send(msg Envelope) error
	Ping() error
	Close() error
}

// SessionStopper lets the registry tear down simulations whose last
// subscriber disconnected.
type SessionStopper interface {
	Stop(sessionID string) bool
}

type connection struct {
	id           string
	sender       Sender
	sessionID    string // subscribed session, empty when unsubscribed
	lastActivity time.Time
}

// ConnRegistry owns every live connection, its liveness timestamp, and
// its session subscription. A connection subscribes to at most one
// session at a time.
type ConnRegistry struct {
	mu    sync.Mutex
	conns map[string]*connection

	stopper           SessionStopper
	stopWhenUnwatched bool
	logger            *slog.Logger
	now               func() time.Time
}

// NewConnRegistry creates a connection registry. When stopWhenUnwatched
// is set, losing a session's last subscriber stops its simulation.
func NewConnRegistry(stopper SessionStopper, stopWhenUnwatched bool, logger *slog.Logger) *ConnRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnRegistry{
		conns:             make(map[string]*connection),
		stopper:           stopper,
		stopWhenUnwatched: stopWhenUnwatched,
		logger:            logger,
		now:               time.Now,
	}
}

// SetStopper binds the simulation registry after construction. The conn
// registry and the simulation registry reference each other, so one side
// has to be wired late.
func (r *ConnRegistry) SetStopper(stopper SessionStopper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopper = stopper
}

// Register adds a connection with its sender.
func (r *ConnRegistry) Register(connID string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &connection{id: connID, sender: sender, lastActivity: r.now()}
	r.logger.Info("connection registered", "connection_id", connID, "total", len(r.conns))
}

// Unregister removes a connection. If it was the last subscriber of its
// session and the auto-stop policy is enabled, the session's simulation
// is stopped.
func (r *ConnRegistry) Unregister(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)
	sessionID := conn.sessionID
	orphaned := sessionID != "" && r.subscriberCountLocked(sessionID) == 0
	total := len(r.conns)
	stopper := r.stopper
	r.mu.Unlock()

	r.logger.Info("connection unregistered", "connection_id", connID, "total", total)
	if orphaned && r.stopWhenUnwatched && stopper != nil {
		if stopper.Stop(sessionID) {
			r.logger.Info("stopped unwatched simulation", "session_id", sessionID)
		}
	}
}

// Subscribe sets the connection's subscription, replacing any prior one.
// Returns false for an unknown connection.
func (r *ConnRegistry) Subscribe(connID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	conn.sessionID = sessionID
	conn.lastActivity = r.now()
	return true
}

// Unsubscribe clears the connection's subscription.
func (r *ConnRegistry) Unsubscribe(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.sessionID = ""
		conn.lastActivity = r.now()
	}
}

// SubscriptionOf returns the session the connection watches, if any.
func (r *ConnRegistry) SubscriptionOf(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connID]
	if !ok || conn.sessionID == "" {
		return "", false
	}
	return conn.sessionID, true
}

// ConnectionsFor returns the ids of all connections subscribed to the session.
func (r *ConnRegistry) ConnectionsFor(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, conn := range r.conns {
		if conn.sessionID == sessionID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Touch refreshes the connection's activity timestamp.
func (r *ConnRegistry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.lastActivity = r.now()
	}
}

// Count returns the number of live connections.
func (r *ConnRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SweepStale force-closes connections idle beyond threshold and returns
// their ids. Live connections receive a ping probe so a responsive
// client refreshes its activity before the next sweep.
func (r *ConnRegistry) SweepStale(threshold time.Duration) []string {
	r.mu.Lock()
	cutoff := r.now().Add(-threshold)
	var stale []*connection
	var live []*connection
	for _, conn := range r.conns {
		if conn.lastActivity.Before(cutoff) {
			stale = append(stale, conn)
		} else {
			live = append(live, conn)
		}
	}
	r.mu.Unlock()

	removed := make([]string, 0, len(stale))
	for _, conn := range stale {
		r.logger.Warn("closing stale connection", "connection_id", conn.id)
		_ = conn.sender.Close()
		r.Unregister(conn.id)
		removed = append(removed, conn.id)
	}
	for _, conn := range live {
		if err := conn.sender.Ping(); err != nil {
			r.logger.Warn("liveness probe failed", "connection_id", conn.id, "err", err)
		}
	}
	return removed
}

// senderFor returns the sender for a connection id.
func (r *ConnRegistry) senderFor(connID string) (Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return conn.sender, true
}

// subscribersFor snapshots the senders subscribed to a session.
func (r *ConnRegistry) subscribersFor(sessionID string) map[string]Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Sender)
	for id, conn := range r.conns {
		if conn.sessionID == sessionID {
			out[id] = conn.sender
		}
	}
	return out
}

// allSenders snapshots every registered sender.
func (r *ConnRegistry) allSenders() map[string]Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Sender, len(r.conns))
	for id, conn := range r.conns {
		out[id] = conn.sender
	}
	return out
}

func (r *ConnRegistry) subscriberCountLocked(sessionID string) int {
	n := 0
	for _, conn := range r.conns {
		if conn.sessionID == sessionID {
			n++
		}
	}
	return n
}

// Registry owning one running vehicle simulation per session.
package sim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// Registry owns at most one running simulation per session id. Starting
// an already-running session is a no-op; stopping guarantees no further
// ticks fire for that session.
type Registry struct {
	writer     TelemetryWriter
	alerts     AlertWriter
	publisher  Publisher
	classifier *hazard.Classifier
	params     telemetry.MotionParams
	origin     telemetry.GPS
	logger     *slog.Logger

	mu      sync.Mutex
	runners map[string]*runner

	// seedFor is overridable in tests for reproducible walks.
	seedFor func(sessionID string) int64
}

// NewRegistry wires the simulation registry. writer and publisher must be
// non-nil; alerts may be nil when no alert sink is configured.
func NewRegistry(writer TelemetryWriter, alerts AlertWriter, publisher Publisher, classifier *hazard.Classifier, params telemetry.MotionParams, origin telemetry.GPS, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		writer:     writer,
		alerts:     alerts,
		publisher:  publisher,
		classifier: classifier,
		params:     params,
		origin:     origin,
		logger:     logger,
		runners:    make(map[string]*runner),
		seedFor:    func(string) int64 { return time.Now().UnixNano() },
	}
}

// Start begins ticking a simulation for sessionID at the given interval.
// Returns false if a simulation for that session is already running.
func (r *Registry) Start(sessionID string, interval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[sessionID]; exists {
		r.logger.Warn("simulation already running", "session_id", sessionID)
		return false
	}

	motion := telemetry.NewMotion(r.params, rand.New(rand.NewSource(r.seedFor(sessionID))), time.Now)
	run := &runner{
		sessionID: sessionID,
		interval:  interval,
		motion:    motion,
		state:     motion.NewVehicleState(r.origin),
		registry:  r,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.runners[sessionID] = run
	go run.loop()

	r.logger.Info("simulation started", "session_id", sessionID, "tick_interval", interval)
	return true
}

// Stop cancels the session's tick loop and discards its state. It blocks
// until the loop has exited, so no tick fires after Stop returns.
// Returns false if no simulation was running.
func (r *Registry) Stop(sessionID string) bool {
	r.mu.Lock()
	run, exists := r.runners[sessionID]
	if exists {
		delete(r.runners, sessionID)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}
	close(run.stop)
	<-run.done
	r.logger.Info("simulation stopped", "session_id", sessionID)
	return true
}

// StopAll tears down every running simulation, used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.runners))
	for id := range r.runners {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Stop(id)
	}
}

// IsRunning reports whether a simulation exists for sessionID.
func (r *Registry) IsRunning(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.runners[sessionID]
	return exists
}

// Active returns the ids of all running simulations.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.runners))
	for id := range r.runners {
		ids = append(ids, id)
	}
	return ids
}

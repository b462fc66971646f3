package store

import (
	"context"
	"sync"
	"time"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// MemoryStore keeps sessions, telemetry, and alerts in process memory.
// It backs tests and the no-database serve mode, and doubles as a
// telemetry/alert sink.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]Session
	samples   []telemetry.Sample
	alerts    []hazard.Alert
	responses []DriverResponse
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// CreateSession stores a new session record; an existing record with the
// same id is returned unchanged.
func (m *MemoryStore) CreateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.ID]; ok {
		return existing, nil
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	m.sessions[s.ID] = s
	return s, nil
}

// FindSession returns the session or (nil, nil) when absent.
func (m *MemoryStore) FindSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// EndSession marks the session completed and returns the updated record,
// or (nil, nil) when absent.
func (m *MemoryStore) EndSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	now := time.Now().UTC()
	s.Status = StatusCompleted
	s.EndedAt = &now
	m.sessions[id] = s
	return &s, nil
}

// SaveDriverResponse appends a driver response record.
func (m *MemoryStore) SaveDriverResponse(_ context.Context, r DriverResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
	return nil
}

// Write records a telemetry sample (sim.TelemetryWriter).
func (m *MemoryStore) Write(s telemetry.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

// WriteAlert records a hazard alert (sim.AlertWriter).
func (m *MemoryStore) WriteAlert(a hazard.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return nil
}

// Samples returns a copy of all recorded telemetry samples.
func (m *MemoryStore) Samples() []telemetry.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]telemetry.Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

// Alerts returns a copy of all recorded alerts.
func (m *MemoryStore) Alerts() []hazard.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hazard.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Responses returns a copy of all recorded driver responses.
func (m *MemoryStore) Responses() []DriverResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DriverResponse, len(m.responses))
	copy(out, m.responses)
	return out
}

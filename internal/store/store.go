// Session metadata and persistence collaborators for the simulator core.
package store

import (
	"context"
	"time"
)

// SessionStatus tracks a session's lifecycle.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Session is one logical driving run with environmental metadata.
// Weather and road type are descriptive only; they do not alter the
// motion model.
type Session struct {
	ID        string        `json:"id"`
	Weather   string        `json:"weather"`
	RoadType  string        `json:"road_type"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// DriverResponse records how a driver reacted to a hazard alert.
type DriverResponse struct {
	SessionID      string    `json:"session_id"`
	AlertKind      string    `json:"alert_kind"`
	Action         string    `json:"action"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionStore persists session lifecycle records. FindSession returns
// (nil, nil) when no session exists for the id.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	FindSession(ctx context.Context, id string) (*Session, error)
	EndSession(ctx context.Context, id string) (*Session, error)
	SaveDriverResponse(ctx context.Context, r DriverResponse) error
}

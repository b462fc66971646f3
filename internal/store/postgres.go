package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"drivesim/internal/hazard"
)

// PostgresStore persists sessions, alerts, and driver responses.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies the connection.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the tables this store writes to.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS driving_sessions (
	id TEXT PRIMARY KEY,
	weather TEXT NOT NULL DEFAULT '',
	road_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS hazard_alerts (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	speed DOUBLE PRECISION NOT NULL,
	obstacle_distance DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS driver_responses (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	alert_kind TEXT NOT NULL,
	action TEXT NOT NULL,
	response_time_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// CreateSession inserts a session; an existing id returns the stored row.
func (s *PostgresStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	if sess.Status == "" {
		sess.Status = StatusActive
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO driving_sessions (id, weather, road_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, sess.ID, sess.Weather, sess.RoadType, string(sess.Status), sess.StartedAt); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	existing, err := s.FindSession(ctx, sess.ID)
	if err != nil {
		return Session{}, err
	}
	if existing == nil {
		return Session{}, errors.New("session vanished after insert")
	}
	return *existing, nil
}

// FindSession returns the session or (nil, nil) when absent.
func (s *PostgresStore) FindSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, weather, road_type, status, started_at, ended_at
		FROM driving_sessions WHERE id = $1
	`
	var sess Session
	var status string
	err := s.pool.QueryRow(ctx, query, id).Scan(&sess.ID, &sess.Weather, &sess.RoadType, &status, &sess.StartedAt, &sess.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	sess.Status = SessionStatus(status)
	return &sess, nil
}

// EndSession marks the session completed; returns (nil, nil) when absent.
func (s *PostgresStore) EndSession(ctx context.Context, id string) (*Session, error) {
	query := `
		UPDATE driving_sessions
		SET status = $2, ended_at = NOW()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, id, string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.FindSession(ctx, id)
}

// SaveDriverResponse inserts a driver response record.
func (s *PostgresStore) SaveDriverResponse(ctx context.Context, r DriverResponse) error {
	query := `
		INSERT INTO driver_responses (session_id, alert_kind, action, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, query, r.SessionID, r.AlertKind, r.Action, r.ResponseTimeMs, ts)
	return err
}

// WriteAlert inserts a hazard alert row (sim.AlertWriter).
func (s *PostgresStore) WriteAlert(a hazard.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	query := `
		INSERT INTO hazard_alerts (session_id, kind, severity, message, speed, obstacle_distance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		a.SessionID, string(a.Kind), string(a.Severity), a.Message,
		a.Trigger.Speed, a.Trigger.ObstacleDistance, a.Timestamp)
	return err
}

// WriteAlerts inserts multiple alert rows in one round trip.
func (s *PostgresStore) WriteAlerts(alerts []hazard.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows := make([][]interface{}, len(alerts))
	for i, a := range alerts {
		rows[i] = []interface{}{
			a.SessionID, string(a.Kind), string(a.Severity), a.Message,
			a.Trigger.Speed, a.Trigger.ObstacleDistance, a.Timestamp,
		}
	}
	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"hazard_alerts"},
		[]string{"session_id", "kind", "severity", "message", "speed", "obstacle_distance", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(alerts), err)
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// liveStateTTL bounds how long a stale live snapshot survives after a
// session's simulation stops writing.
const liveStateTTL = 30 * time.Second

// RedisStore caches each session's latest telemetry and publishes alerts
// on pub/sub channels for out-of-process consumers.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings a Redis client.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping verifies connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func liveStateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:live", sessionID)
}

// Write caches the sample as the session's live state and publishes it
// on the session's telemetry channel (sim.TelemetryWriter).
func (r *RedisStore) Write(s telemetry.Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stateData := map[string]interface{}{
		"session_id":        s.SessionID,
		"speed":             s.Speed,
		"lat":               s.GPS.Lat,
		"lng":               s.GPS.Lng,
		"obstacle_distance": s.ObstacleDistance,
		"route_progress":    s.RouteProgress,
		"timestamp":         s.Timestamp.UnixMilli(),
	}
	payload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal live state: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, liveStateKey(s.SessionID), stateData)
	pipe.Expire(ctx, liveStateKey(s.SessionID), liveStateTTL)
	pipe.Publish(ctx, fmt.Sprintf("session:%s:telemetry", s.SessionID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// WriteAlert publishes the alert on the session's alert channel, and on
// the global channel when critical (sim.AlertWriter).
func (r *RedisStore) WriteAlert(a hazard.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	pipe := r.client.Pipeline()
	pipe.Publish(ctx, fmt.Sprintf("session:%s:alerts", a.SessionID), payload)
	if a.Severity == hazard.SeverityCritical {
		pipe.Publish(ctx, "alerts:critical", payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// LiveSample returns the session's cached latest telemetry, or (nil, nil)
// when no live state exists.
func (r *RedisStore) LiveSample(ctx context.Context, sessionID string) (*telemetry.Sample, error) {
	vals, err := r.client.HGetAll(ctx, liveStateKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis live state read failed: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	s := &telemetry.Sample{SessionID: vals["session_id"]}
	s.Speed, _ = strconv.ParseFloat(vals["speed"], 64)
	s.GPS.Lat, _ = strconv.ParseFloat(vals["lat"], 64)
	s.GPS.Lng, _ = strconv.ParseFloat(vals["lng"], 64)
	s.ObstacleDistance, _ = strconv.ParseFloat(vals["obstacle_distance"], 64)
	s.RouteProgress, _ = strconv.ParseFloat(vals["route_progress"], 64)
	if ms, err := strconv.ParseInt(vals["timestamp"], 10, 64); err == nil {
		s.Timestamp = time.UnixMilli(ms).UTC()
	}
	return s, nil
}

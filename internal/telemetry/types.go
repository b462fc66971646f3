// Telemetry domain types shared by the simulator, hub, and storage sinks.
package telemetry

import (
	"os"
	"time"
)

// GPS holds a latitude/longitude pair in degrees.
type GPS struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Sample is one telemetry record produced per simulation tick.
// It is immutable once built; the simulator hands it to the storage
// sinks and the dispatcher and keeps no reference.
type Sample struct {
	SessionID        string    `json:"session_id"` // TAG
	Speed            float64   `json:"speed"`      // FIELD, km/h
	GPS              GPS       `json:"gps"`        // FIELD pair
	ObstacleDistance float64   `json:"obstacle_distance"` // FIELD, meters
	RouteProgress    float64   `json:"route_progress"`    // FIELD, meters traveled
	Timestamp        time.Time `json:"timestamp"`         // TIME INDEX
}

// TelemetryTableName holds the table name used when writing samples to
// GreptimeDB. It defaults to "vehicle_telemetry" but can be overridden
// via the GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "vehicle_telemetry"
}()

func (Sample) TableName() string {
	return TelemetryTableName
}

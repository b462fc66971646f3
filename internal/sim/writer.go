package sim

import (
	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// TelemetryWriter is an interface to support different telemetry sinks.
type TelemetryWriter interface {
	Write(telemetry.Sample) error
}

// AlertWriter handles hazard alert records.
type AlertWriter interface {
	WriteAlert(hazard.Alert) error
}

// Optional: writers may support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.Sample) error
}

// Optional: alert writers may support batch mode.
type batchAlertWriter interface {
	WriteAlerts([]hazard.Alert) error
}

// Publisher receives each tick's sample and optional alert for delivery
// to live subscribers. Implementations must not block the tick loop.
type Publisher interface {
	Publish(sessionID string, sample telemetry.Sample, alert *hazard.Alert)
}

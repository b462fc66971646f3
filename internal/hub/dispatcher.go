package hub

import (
	"log/slog"
	"time"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// Dispatcher fans out per-tick telemetry to subscribed connections and
// broadcasts critical alerts to everyone. It only reads the connection
// registry; it never mutates connection state.
type Dispatcher struct {
	registry *ConnRegistry
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *ConnRegistry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger, now: time.Now}
}

// Publish delivers one tick's sample and optional alert to the session's
// subscribers, then — for a critical alert — a global alert to every
// registered connection. Delivery is best-effort: a failed send is
// logged and does not block the remaining connections. Subscribers
// always see the telemetry update before anyone sees the global alert.
func (d *Dispatcher) Publish(sessionID string, sample telemetry.Sample, alert *hazard.Alert) {
	update := Envelope{Type: MsgTelemetryData, Data: map[string]any{
		"telemetry": sample,
		"alert":     alert,
		"timestamp": d.now().UTC(),
	}}
	for connID, sender := range d.registry.subscribersFor(sessionID) {
		if err := sender.Send(update); err != nil {
			d.logger.Warn("telemetry send failed", "connection_id", connID, "session_id", sessionID, "err", err)
		}
	}

	if alert == nil || alert.Severity != hazard.SeverityCritical {
		return
	}
	global := Envelope{Type: MsgGlobalAlert, Data: map[string]any{
		"alert":         alert,
		"sourceSession": sessionID,
		"timestamp":     d.now().UTC(),
	}}
	for connID, sender := range d.registry.allSenders() {
		if err := sender.Send(global); err != nil {
			d.logger.Warn("global alert send failed", "connection_id", connID, "err", err)
		}
	}
}

package sim

import (
	"time"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// runner drives one session's simulation. All tick work runs on the
// loop goroutine, so ticks for a session are strictly sequential.
type runner struct {
	sessionID string
	interval  time.Duration
	motion    *telemetry.Motion
	state     *telemetry.VehicleState
	cooldown  hazard.Cooldown
	registry  *Registry
	lastTick  time.Time

	stop chan struct{}
	done chan struct{}
}

func (r *runner) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.lastTick = time.Now()
	for {
		select {
		case now := <-ticker.C:
			r.tick(now)
		case <-r.stop:
			return
		}
	}
}

// tick advances the vehicle, classifies hazards, persists best-effort,
// and publishes to subscribers. A panic is logged and the tick skipped;
// the loop continues on the next interval.
func (r *runner) tick(now time.Time) {
	log := r.registry.logger
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("tick failed", "session_id", r.sessionID, "panic", rec)
		}
	}()

	elapsed := now.Sub(r.lastTick)
	if elapsed <= 0 {
		elapsed = r.interval
	}
	r.lastTick = now

	r.motion.Advance(r.state, elapsed)

	sample := telemetry.Sample{
		SessionID:        r.sessionID,
		Speed:            r.state.Speed,
		GPS:              r.state.Position,
		ObstacleDistance: r.state.ObstacleDistance,
		RouteProgress:    r.state.RouteProgress,
		Timestamp:        now.UTC(),
	}

	var alert *hazard.Alert
	if r.registry.classifier != nil {
		alert = r.registry.classifier.Evaluate(sample, &r.cooldown, now)
	}

	// Persistence is detached: a slow or failing sink must never delay
	// the next tick or surface to clients.
	go r.persist(sample, alert)

	if r.registry.publisher != nil {
		r.registry.publisher.Publish(r.sessionID, sample, alert)
	}
}

func (r *runner) persist(sample telemetry.Sample, alert *hazard.Alert) {
	log := r.registry.logger
	if w := r.registry.writer; w != nil {
		if err := w.Write(sample); err != nil {
			log.Error("telemetry write failed", "session_id", r.sessionID, "err", err)
		}
	}
	if alert == nil {
		return
	}
	if aw := r.registry.alerts; aw != nil {
		if err := aw.WriteAlert(*alert); err != nil {
			log.Error("alert write failed", "session_id", r.sessionID, "err", err)
		}
	}
}

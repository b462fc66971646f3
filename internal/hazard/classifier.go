// Rule-based hazard classification for vehicle telemetry.
package hazard

import (
	"fmt"
	"time"

	"drivesim/internal/telemetry"
)

// Kind identifies the category of a hazard alert.
type Kind string

const (
	KindEmergencyBrake   Kind = "emergency_brake"
	KindCollisionWarning Kind = "collision_warning"
	KindSpeedWarning     Kind = "speed_warning"
)

// Severity grades a hazard alert.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is emitted at most once per tick when a hazard rule fires.
// Trigger keeps the sample values that caused it for later audit.
type Alert struct {
	SessionID string           `json:"session_id"`
	Kind      Kind             `json:"kind"`
	Severity  Severity         `json:"severity"`
	Message   string           `json:"message"`
	Trigger   telemetry.Sample `json:"trigger"`
	Timestamp time.Time        `json:"timestamp"`
}

// Cooldown tracks when a session last alerted so repeated hazards within
// the suppression window stay quiet. Owned by the session runner.
type Cooldown struct {
	lastAlertAt time.Time
}

// Suppressed reports whether an alert fired within the window before now.
func (c *Cooldown) Suppressed(now time.Time, window time.Duration) bool {
	return !c.lastAlertAt.IsZero() && now.Sub(c.lastAlertAt) < window
}

// assumedDeceleration is the braking capability used for the stopping
// distance estimate, in m/s².
const assumedDeceleration = 7.0

// stoppingDistance returns the distance needed to brake from the given
// speed (km/h) to a standstill.
func stoppingDistance(speedKmh float64) float64 {
	ms := speedKmh / 3.6
	return ms * ms / (2 * assumedDeceleration)
}

// Classifier maps telemetry samples to optional alerts. Evaluation is a
// pure decision procedure over the sample and cooldown state.
type Classifier struct {
	cooldownWindow time.Duration
}

// NewClassifier creates a classifier with the given suppression window.
// A non-positive window disables suppression.
func NewClassifier(cooldownWindow time.Duration) *Classifier {
	return &Classifier{cooldownWindow: cooldownWindow}
}

// Evaluate applies the hazard rules in precedence order and returns at
// most one alert. A match inside the cooldown window returns nil without
// refreshing the window.
func (c *Classifier) Evaluate(sample telemetry.Sample, cd *Cooldown, now time.Time) *Alert {
	if c.cooldownWindow > 0 && cd != nil && cd.Suppressed(now, c.cooldownWindow) {
		return nil
	}

	alert := classify(sample)
	if alert == nil {
		return nil
	}
	alert.Timestamp = now
	if cd != nil {
		cd.lastAlertAt = now
	}
	return alert
}

// classify applies the rule table; first match wins.
func classify(s telemetry.Sample) *Alert {
	switch {
	case s.ObstacleDistance <= 5:
		return newAlert(s, KindEmergencyBrake, SeverityCritical,
			fmt.Sprintf("obstacle at %.1fm, emergency braking required", s.ObstacleDistance))
	case s.ObstacleDistance <= 0.7*stoppingDistance(s.Speed):
		return newAlert(s, KindCollisionWarning, SeverityHigh,
			fmt.Sprintf("obstacle at %.1fm inside stopping distance at %.0f km/h", s.ObstacleDistance, s.Speed))
	case s.Speed > 120:
		return newAlert(s, KindSpeedWarning, SeverityMedium,
			fmt.Sprintf("speed %.0f km/h exceeds 120 km/h limit", s.Speed))
	case s.ObstacleDistance < 30 && s.Speed > 80:
		return newAlert(s, KindCollisionWarning, SeverityHigh,
			fmt.Sprintf("closing on obstacle at %.1fm while driving %.0f km/h", s.ObstacleDistance, s.Speed))
	case s.ObstacleDistance < 20:
		return newAlert(s, KindCollisionWarning, SeverityMedium,
			fmt.Sprintf("obstacle ahead at %.1fm", s.ObstacleDistance))
	default:
		return nil
	}
}

func newAlert(s telemetry.Sample, kind Kind, sev Severity, msg string) *Alert {
	return &Alert{
		SessionID: s.SessionID,
		Kind:      kind,
		Severity:  sev,
		Message:   msg,
		Trigger:   s,
	}
}

package hazard

import (
	"testing"
	"time"

	"drivesim/internal/telemetry"
)

func sample(speed, obstacle float64) telemetry.Sample {
	return telemetry.Sample{
		SessionID:        "s1",
		Speed:            speed,
		ObstacleDistance: obstacle,
		Timestamp:        time.Unix(100, 0),
	}
}

func TestEvaluate_RuleTable(t *testing.T) {
	cases := []struct {
		name     string
		speed    float64
		obstacle float64
		kind     Kind
		severity Severity
	}{
		{"emergency brake at contact distance", 50, 3, KindEmergencyBrake, SeverityCritical},
		{"emergency brake boundary", 120, 5, KindEmergencyBrake, SeverityCritical},
		{"stopping distance breach", 130, 50, KindCollisionWarning, SeverityHigh},
		{"speeding on open road", 130, 100, KindSpeedWarning, SeverityMedium},
		{"close and fast fires before close rule", 90, 25, KindCollisionWarning, SeverityHigh},
		{"close and slow", 50, 15, KindCollisionWarning, SeverityMedium},
	}

	c := NewClassifier(5 * time.Second)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alert := c.Evaluate(sample(tc.speed, tc.obstacle), &Cooldown{}, time.Unix(1000, 0))
			if alert == nil {
				t.Fatalf("expected alert for speed=%f obstacle=%f", tc.speed, tc.obstacle)
			}
			if alert.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", alert.Kind, tc.kind)
			}
			if alert.Severity != tc.severity {
				t.Errorf("severity = %s, want %s", alert.Severity, tc.severity)
			}
			if alert.Message == "" {
				t.Errorf("expected a human-readable message")
			}
			if alert.Trigger.Speed != tc.speed || alert.Trigger.ObstacleDistance != tc.obstacle {
				t.Errorf("trigger snapshot mismatch: %+v", alert.Trigger)
			}
		})
	}
}

func TestEvaluate_NoHazard(t *testing.T) {
	c := NewClassifier(5 * time.Second)
	if alert := c.Evaluate(sample(80, 150), &Cooldown{}, time.Unix(1000, 0)); alert != nil {
		t.Errorf("expected no alert, got %+v", alert)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := NewClassifier(0)
	s := sample(130, 100)
	first := c.Evaluate(s, nil, time.Unix(1000, 0))
	second := c.Evaluate(s, nil, time.Unix(1000, 0))
	if first == nil || second == nil {
		t.Fatal("expected alerts")
	}
	if first.Kind != second.Kind || first.Severity != second.Severity || first.Message != second.Message {
		t.Errorf("classification not deterministic: %+v vs %+v", first, second)
	}
}

func TestEvaluate_CooldownSuppression(t *testing.T) {
	c := NewClassifier(5 * time.Second)
	cd := &Cooldown{}
	base := time.Unix(2000, 0)

	if alert := c.Evaluate(sample(50, 3), cd, base); alert == nil {
		t.Fatal("expected first alert")
	}
	if alert := c.Evaluate(sample(50, 3), cd, base.Add(4999*time.Millisecond)); alert != nil {
		t.Errorf("expected suppression inside the window, got %+v", alert)
	}
	// Suppressed evaluation must not have refreshed the window.
	if alert := c.Evaluate(sample(50, 3), cd, base.Add(5001*time.Millisecond)); alert == nil {
		t.Errorf("expected alert after cooldown expiry")
	}
}

func TestEvaluate_SuppressionDoesNotExtendWindow(t *testing.T) {
	c := NewClassifier(5 * time.Second)
	cd := &Cooldown{}
	base := time.Unix(3000, 0)

	c.Evaluate(sample(50, 3), cd, base)
	c.Evaluate(sample(50, 3), cd, base.Add(3*time.Second))
	if alert := c.Evaluate(sample(50, 3), cd, base.Add(5*time.Second)); alert == nil {
		t.Errorf("window measured from the last emitted alert, expected alert at +5s")
	}
}

func TestStoppingDistance(t *testing.T) {
	// 126 km/h = 35 m/s; 35²/(2*7) = 87.5m.
	if got := stoppingDistance(126); got < 87.4 || got > 87.6 {
		t.Errorf("stoppingDistance(126) = %f, want 87.5", got)
	}
}

package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

func TestWatchModel_SampleUpdatesTable(t *testing.T) {
	m := newWatchModel("sess-1")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = mi.(watchModel)

	sample := telemetry.Sample{
		SessionID:        "sess-1",
		Speed:            87.3,
		GPS:              telemetry.GPS{Lat: 40.71280, Lng: -74.00600},
		ObstacleDistance: 42.0,
		RouteProgress:    1234,
		Timestamp:        time.Unix(0, 0).UTC(),
	}
	mi, _ = m.Update(sampleMsg{sample: sample})
	m = mi.(watchModel)

	if !m.haveSample || m.samples != 1 {
		t.Fatalf("sample not recorded: have=%v count=%d", m.haveSample, m.samples)
	}
	view := m.View()
	if !strings.Contains(view, "87.3") {
		t.Errorf("expected speed in view, got:\n%s", view)
	}
	if !strings.Contains(view, "samples=1") {
		t.Errorf("expected sample counter in header, got:\n%s", view)
	}
}

func TestWatchModel_AlertAppendsLog(t *testing.T) {
	m := newWatchModel("sess-1")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = mi.(watchModel)

	alert := hazard.Alert{
		SessionID: "sess-1",
		Kind:      hazard.KindEmergencyBrake,
		Severity:  hazard.SeverityCritical,
		Message:   "obstacle at 4.2m",
		Timestamp: time.Unix(0, 0).UTC(),
	}
	mi, _ = m.Update(alertMsg{alert: alert, global: true})
	m = mi.(watchModel)

	if m.alerts != 1 {
		t.Fatalf("alert not counted: %d", m.alerts)
	}
	view := m.View()
	if !strings.Contains(view, "obstacle at 4.2m") {
		t.Errorf("expected alert message in view, got:\n%s", view)
	}
	if !strings.Contains(view, "[global]") {
		t.Errorf("expected global marker in view, got:\n%s", view)
	}
}

func TestWatchModel_QuitKeys(t *testing.T) {
	m := newWatchModel("sess-1")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command for q")
	}
}

func TestWatchModel_DisconnectQuits(t *testing.T) {
	m := newWatchModel("sess-1")
	_, cmd := m.Update(disconnectMsg{})
	if cmd == nil {
		t.Fatal("expected quit command on disconnect")
	}
}

func TestRenderAlertLine_SeverityStyles(t *testing.T) {
	a := hazard.Alert{
		Kind:      hazard.KindSpeedWarning,
		Severity:  hazard.SeverityMedium,
		Message:   "speed 130.0 km/h exceeds limit",
		Timestamp: time.Unix(0, 0).UTC(),
	}
	line := renderAlertLine(a, false)
	if !strings.Contains(line, "speed_warning/medium") {
		t.Errorf("expected kind/severity in line, got %q", line)
	}
	if strings.Contains(line, "[global]") {
		t.Errorf("local alert must not carry global marker: %q", line)
	}
}

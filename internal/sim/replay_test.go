package sim

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"drivesim/internal/telemetry"
)

type collectWriter struct{ samples []telemetry.Sample }

func (c *collectWriter) Write(s telemetry.Sample) error {
	c.samples = append(c.samples, s)
	return nil
}

func TestReplayLog(t *testing.T) {
	samples := []telemetry.Sample{
		{SessionID: "s1", Speed: 80, Timestamp: time.Unix(0, 0)},
		{SessionID: "s1", Speed: 82, Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	if err := ReplayLog(&buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(cw.samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(cw.samples))
	}
	for i, s := range samples {
		if cw.samples[i].Speed != s.Speed {
			t.Fatalf("sample %d mismatch: %+v vs %+v", i, cw.samples[i], s)
		}
	}
}

func TestReplayLog_BadPayload(t *testing.T) {
	cw := &collectWriter{}
	if err := ReplayLog(bytes.NewBufferString("not json"), cw, 0); err == nil {
		t.Fatal("expected decode error")
	}
}

// Writer implementation printing telemetry to STDOUT
package sim

import (
	"encoding/json"
	"fmt"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// StdoutWriter prints telemetry samples and alerts as JSON lines.
type StdoutWriter struct{}

// Write outputs a single telemetry sample.
func (w *StdoutWriter) Write(sample telemetry.Sample) error {
	data, _ := json.Marshal(sample)
	fmt.Println(string(data))
	return nil
}

// WriteBatch outputs multiple telemetry samples.
func (w *StdoutWriter) WriteBatch(samples []telemetry.Sample) error {
	for _, s := range samples {
		_ = w.Write(s)
	}
	return nil
}

// WriteAlert prints a hazard alert to STDOUT.
func (w *StdoutWriter) WriteAlert(a hazard.Alert) error {
	data, _ := json.Marshal(a)
	fmt.Println(string(data))
	return nil
}

// WriteAlerts prints multiple hazard alerts.
func (w *StdoutWriter) WriteAlerts(alerts []hazard.Alert) error {
	for _, a := range alerts {
		_ = w.WriteAlert(a)
	}
	return nil
}

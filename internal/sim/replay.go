package sim

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"drivesim/internal/telemetry"
)

// ReplayLog replays telemetry samples from r to writer. A speed >0 accelerates playback.
// If speed <= 0, no artificial delay is inserted.
func ReplayLog(r io.Reader, writer TelemetryWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var sample telemetry.Sample
		if err := dec.Decode(&sample); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := sample.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.Write(sample); err != nil {
			return err
		}
		prev = sample.Timestamp
	}
}

// ReplayLogFile opens a file and replays its telemetry samples.
func ReplayLogFile(path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, speed)
}

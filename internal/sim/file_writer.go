package sim

import (
	"encoding/json"
	"os"
	"sync"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// FileWriter writes telemetry and alert data to JSONL files.
type FileWriter struct {
	mu        sync.Mutex
	teleFile  *os.File
	alertFile *os.File
	teleEnc   *json.Encoder
	alertEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. alertPath may be empty to skip the alert log.
func NewFileWriter(telemetryPath, alertPath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if alertPath != "" {
		af, err := os.Create(alertPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.alertFile = af
		fw.alertEnc = json.NewEncoder(af)
	}
	return fw, nil
}

// Write logs a single telemetry sample.
func (f *FileWriter) Write(sample telemetry.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teleEnc.Encode(sample)
}

// WriteBatch logs multiple telemetry samples.
func (f *FileWriter) WriteBatch(samples []telemetry.Sample) error {
	for _, s := range samples {
		if err := f.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert logs a single hazard alert, if enabled.
func (f *FileWriter) WriteAlert(a hazard.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alertEnc == nil {
		return nil
	}
	return f.alertEnc.Encode(a)
}

// WriteAlerts logs multiple hazard alerts.
func (f *FileWriter) WriteAlerts(alerts []hazard.Alert) error {
	for _, a := range alerts {
		if err := f.WriteAlert(a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.teleFile != nil {
		if e := f.teleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.alertFile != nil {
		if e := f.alertFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

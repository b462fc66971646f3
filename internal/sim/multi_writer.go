package sim

import (
	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

// MultiWriter fans out telemetry samples and alerts to multiple writers.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	alertwriters []AlertWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TelemetryWriter, aws []AlertWriter) *MultiWriter {
	return &MultiWriter{telewriters: tws, alertwriters: aws}
}

// Write sends a telemetry sample to all writers.
func (mw *MultiWriter) Write(sample telemetry.Sample) error {
	for _, w := range mw.telewriters {
		if err := w.Write(sample); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple samples to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(samples []telemetry.Sample) error {
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(samples); err != nil {
				return err
			}
			continue
		}
		for _, s := range samples {
			if err := w.Write(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAlert sends a hazard alert to all alert writers.
func (mw *MultiWriter) WriteAlert(a hazard.Alert) error {
	for _, w := range mw.alertwriters {
		if err := w.WriteAlert(a); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlerts sends multiple alerts to all alert writers, using batch if supported.
func (mw *MultiWriter) WriteAlerts(alerts []hazard.Alert) error {
	for _, w := range mw.alertwriters {
		if bw, ok := w.(batchAlertWriter); ok {
			if err := bw.WriteAlerts(alerts); err != nil {
				return err
			}
			continue
		}
		for _, a := range alerts {
			if err := w.WriteAlert(a); err != nil {
				return err
			}
		}
	}
	return nil
}

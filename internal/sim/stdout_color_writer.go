// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints telemetry samples using ANSI colors.
type ColorStdoutWriter struct {
	mu            sync.Mutex
	out           io.Writer
	sessionColors map[string]string
	colorIdx      int
}

var sessionPalette = []string{colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{
		out:           os.Stdout,
		sessionColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getSessionColor(id string) string {
	if c, ok := w.sessionColors[id]; ok {
		return c
	}
	c := sessionPalette[w.colorIdx%len(sessionPalette)]
	w.sessionColors[id] = c
	w.colorIdx++
	return c
}

// Write outputs a single telemetry sample in colorized format.
func (w *ColorStdoutWriter) Write(s telemetry.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sColor := w.getSessionColor(s.SessionID)
	obstacleColor := colorGreen
	if s.ObstacleDistance < 50 {
		obstacleColor = colorYellow
	}
	if s.ObstacleDistance < 20 {
		obstacleColor = colorRed
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, s.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%ssession=%s%s ", sColor, s.SessionID, colorReset)
	fmt.Fprintf(w.out, "%sspeed=%.1f%s ", colorCyan, s.Speed, colorReset)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, s.GPS.Lat, colorReset)
	fmt.Fprintf(w.out, "%slng=%.5f%s ", colorYellow, s.GPS.Lng, colorReset)
	fmt.Fprintf(w.out, "%sobstacle=%.1fm%s ", obstacleColor, s.ObstacleDistance, colorReset)
	fmt.Fprintf(w.out, "%sprogress=%.0fm%s\n", colorGray, s.RouteProgress, colorReset)
	return nil
}

// WriteBatch outputs multiple telemetry samples.
func (w *ColorStdoutWriter) WriteBatch(samples []telemetry.Sample) error {
	for _, s := range samples {
		_ = w.Write(s)
	}
	return nil
}

// WriteAlert prints a hazard alert, color-coded by severity.
func (w *ColorStdoutWriter) WriteAlert(a hazard.Alert) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sevColor := colorYellow
	if a.Severity == hazard.SeverityHigh {
		sevColor = colorMagenta
	}
	if a.Severity == hazard.SeverityCritical {
		sevColor = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sALERT%s session=%s kind=%s severity=%s msg=%q\n",
		colorGray, a.Timestamp.Format(time.RFC3339), colorReset,
		sevColor, colorReset, a.SessionID, a.Kind, a.Severity, a.Message)
	return nil
}

// WriteAlerts prints multiple hazard alerts.
func (w *ColorStdoutWriter) WriteAlerts(alerts []hazard.Alert) error {
	for _, a := range alerts {
		_ = w.WriteAlert(a)
	}
	return nil
}

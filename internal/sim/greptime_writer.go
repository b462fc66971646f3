package sim

import (
	"context"
	"log"
	"net"
	"strconv"

	"drivesim/internal/hazard"
	"drivesim/internal/telemetry"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// GreptimeDBWriter writes telemetry and alerts to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     *greptime.Client
	db         string
	table      string
	alertTable string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer and auto-creates the tables if needed.
func NewGreptimeDBWriter(endpoint, database, tableName, alertTableName string) (*GreptimeDBWriter, error) {
	ctx := ingesterContext.New(context.Background())

	host, portStr, splitErr := net.SplitHostPort(endpoint)
	if splitErr != nil {
		host = endpoint
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if splitErr == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, err
		}
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if tableName == "" {
		tableName = telemetry.TelemetryTableName
	}
	if alertTableName == "" {
		alertTableName = "vehicle_alerts"
	}

	ddl := `
CREATE TABLE IF NOT EXISTS ` + tableName + ` (
  session_id STRING TAG,
  speed DOUBLE,
  lat DOUBLE,
  lng DOUBLE,
  obstacle_distance DOUBLE,
  route_progress DOUBLE,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='30d')
`
	if _, err := client.SQL(ctx, ddl); err != nil {
		return nil, err
	}

	alertDDL := `
CREATE TABLE IF NOT EXISTS ` + alertTableName + ` (
  session_id STRING TAG,
  kind STRING TAG,
  severity STRING,
  message STRING,
  speed DOUBLE,
  obstacle_distance DOUBLE,
  ts TIMESTAMP TIME INDEX
) WITH (ttl='90d')
`
	if _, err := client.SQL(ctx, alertDDL); err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{
		client:     client,
		db:         database,
		table:      tableName,
		alertTable: alertTableName,
	}, nil
}

// Write inserts a single telemetry sample.
func (w *GreptimeDBWriter) Write(sample telemetry.Sample) error {
	return w.WriteBatch([]telemetry.Sample{sample})
}

// WriteBatch inserts multiple telemetry samples.
func (w *GreptimeDBWriter) WriteBatch(samples []telemetry.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	ctx := ingesterContext.New(context.Background())

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddFieldColumn("speed", types.FLOAT64)
	tbl.AddFieldColumn("lat", types.FLOAT64)
	tbl.AddFieldColumn("lng", types.FLOAT64)
	tbl.AddFieldColumn("obstacle_distance", types.FLOAT64)
	tbl.AddFieldColumn("route_progress", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP)

	for _, s := range samples {
		tbl.AddRow(s.SessionID, s.Speed, s.GPS.Lat, s.GPS.Lng, s.ObstacleDistance, s.RouteProgress, s.Timestamp)
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		log.Printf("[GreptimeDBWriter] Write failed: %v", err)
		return err
	}
	return nil
}

// WriteAlert inserts a single hazard alert.
func (w *GreptimeDBWriter) WriteAlert(a hazard.Alert) error {
	return w.WriteAlerts([]hazard.Alert{a})
}

// WriteAlerts inserts multiple hazard alerts.
func (w *GreptimeDBWriter) WriteAlerts(alerts []hazard.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx := ingesterContext.New(context.Background())

	tbl, err := table.New(w.alertTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddTagColumn("kind", types.STRING)
	tbl.AddFieldColumn("severity", types.STRING)
	tbl.AddFieldColumn("message", types.STRING)
	tbl.AddFieldColumn("speed", types.FLOAT64)
	tbl.AddFieldColumn("obstacle_distance", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP)

	for _, a := range alerts {
		tbl.AddRow(a.SessionID, string(a.Kind), string(a.Severity), a.Message, a.Trigger.Speed, a.Trigger.ObstacleDistance, a.Timestamp)
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		log.Printf("[GreptimeDBWriter] Alert write failed: %v", err)
		return err
	}
	return nil
}

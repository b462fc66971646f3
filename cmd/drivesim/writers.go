package main

import (
	"context"
	"log/slog"

	"drivesim/internal/config"
	"drivesim/internal/sim"
	"drivesim/internal/store"
)

// sinks bundles everything the storage config produced: the fan-out
// writers the simulator feeds, the session store, the optional live
// telemetry reader, and a cleanup for held connections.
type sinks struct {
	telemetry *sim.MultiWriter
	sessions  store.SessionStore
	live      *store.RedisStore
	cleanup   func()
}

// newSinks builds the writer fan-out from the storage config. The
// in-memory store is always first so the server works with no backing
// services at all; Postgres, Redis, GreptimeDB, and file sinks attach
// on top when configured.
func newSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sinks, error) {
	mem := store.NewMemoryStore()
	tws := []sim.TelemetryWriter{mem}
	aws := []sim.AlertWriter{mem}

	s := &sinks{sessions: mem, cleanup: func() {}}
	var closers []func()

	if cfg.Storage.PostgresURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		closers = append(closers, pg.Close)
		s.sessions = pg
		aws = append(aws, pg)
		logger.Info("postgres store attached")
	}

	if cfg.Storage.RedisAddr != "" {
		rd, err := store.NewRedisStore(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = rd.Close() })
		s.live = rd
		tws = append(tws, rd)
		aws = append(aws, rd)
		logger.Info("redis live state attached", "addr", cfg.Storage.RedisAddr)
	}

	if cfg.Storage.GreptimeEndpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(cfg.Storage.GreptimeEndpoint, cfg.Storage.GreptimeDatabase, "", "")
		if err != nil {
			return nil, err
		}
		tws = append(tws, gw)
		aws = append(aws, gw)
		logger.Info("greptimedb writer attached", "endpoint", cfg.Storage.GreptimeEndpoint)
	}

	if cfg.Storage.TelemetryFile != "" {
		fw, err := sim.NewFileWriter(cfg.Storage.TelemetryFile, cfg.Storage.AlertFile)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = fw.Close() })
		tws = append(tws, fw)
		aws = append(aws, fw)
		logger.Info("file writer attached", "path", cfg.Storage.TelemetryFile)
	}

	s.telemetry = sim.NewMultiWriter(tws, aws)
	s.cleanup = func() {
		for _, c := range closers {
			c()
		}
	}
	return s, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"drivesim/internal/admin"
	"drivesim/internal/config"
	"drivesim/internal/hazard"
	"drivesim/internal/hub"
	"drivesim/internal/logging"
	"drivesim/internal/sim"
	"drivesim/internal/telemetry"
)

var (
	serveConfigPath string
	serveSchemaPath string
	servePrintTelem bool
	serveLogFile    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry websocket server",
	Long:  "serve starts the websocket server that runs per-session driving simulations, classifies hazards, and streams both to subscribed clients.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigPath, serveSchemaPath)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Storage.GreptimeEndpoint != "" && cfg.Storage.GreptimeDatabase == "" {
			cfg.Storage.GreptimeDatabase = "public"
		}
		if serveLogFile != "" {
			cfg.Storage.TelemetryFile = serveLogFile
			cfg.Storage.AlertFile = serveLogFile + ".alerts"
		}
		snk, err := newSinks(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer snk.cleanup()

		writer := snk.telemetry
		if servePrintTelem {
			cw := sim.NewColorStdoutWriter()
			writer = sim.NewMultiWriter(
				[]sim.TelemetryWriter{writer, cw},
				[]sim.AlertWriter{writer, cw},
			)
		}

		connReg := hub.NewConnRegistry(nil, cfg.StopWhenUnwatched, logger)
		dispatcher := hub.NewDispatcher(connReg, logger)

		classifier := hazard.NewClassifier(cfg.AlertCooldown.Std())
		origin := telemetry.GPS{Lat: cfg.OriginLat, Lng: cfg.OriginLng}
		sims := sim.NewRegistry(writer, writer, dispatcher, classifier, cfg.Motion, origin, logger)
		defer sims.StopAll()
		connReg.SetStopper(sims)

		var live hub.LiveReader
		if snk.live != nil {
			live = snk.live
		}
		handler := hub.NewHandler(connReg, sims, snk.sessions, live, cfg.TickInterval.Std(), logger)
		srv := hub.NewServer(handler, connReg, cfg.SweepInterval.Std(), cfg.StaleThreshold.Std(), logger)
		adminSrv := admin.NewServer(sims, connReg)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("websocket server listening", "addr", cfg.ListenAddr)
			if err := srv.Start(gctx, cfg.ListenAddr); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			logger.Info("admin server listening", "addr", cfg.AdminAddr)
			if err := adminSrv.Start(gctx, cfg.AdminAddr); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			srv.RunSweeper(gctx)
			return nil
		})

		err = g.Wait()
		logger.Info("server stopped")
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/drivesim.yaml", "Path to server configuration YAML")
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "schemas/drivesim.cue", "Path to CUE schema file")
	serveCmd.Flags().BoolVar(&servePrintTelem, "print", false, "Also print telemetry and alerts to STDOUT")
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Path to export telemetry/alert logs (JSONL)")
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"drivesim/internal/tui"
)

var (
	watchURL     string
	watchSession string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a running session's telemetry in the terminal",
	Long:  "watch connects to a drivesim server, subscribes to one session, and renders its telemetry and hazard alerts live.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return tui.Watch(ctx, watchURL, watchSession)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:8080/ws", "Websocket URL of the drivesim server")
	watchCmd.Flags().StringVar(&watchSession, "session", "", "Session ID to watch")
	watchCmd.MarkFlagRequired("session")
}

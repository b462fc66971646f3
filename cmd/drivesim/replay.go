package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"drivesim/internal/sim"
)

var (
	replayInput string
	replaySpeed float64
	replayPlain bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds recorded telemetry samples from a JSONL log back to STDOUT, honoring the original inter-sample timing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		var writer sim.TelemetryWriter = sim.NewColorStdoutWriter()
		if replayPlain {
			writer = &sim.StdoutWriter{}
		}
		return sim.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file (JSONL)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPlain, "plain", false, "Print raw JSON lines without color")
	replayCmd.MarkFlagRequired("input")
}

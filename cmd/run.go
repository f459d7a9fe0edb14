package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tubepilot/internal/autopilot"
)

var runInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cron mode: publish due uploads at regular intervals",
	Long: `Run in continuous mode, sweeping the task queue at regular intervals
and uploading every task whose schedule has come due.`,
	RunE: runCron,
}

func init() {
	runCmd.Flags().DurationVarP(&runInterval, "interval", "i", 0, "Interval between sweeps (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runCron(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	interval := runInterval
	if interval == 0 {
		interval = service.Config().Autopilot.Interval
	}

	slog.Info("Starting cron mode", "interval", interval)

	sweep := func() {
		results, err := service.Autopilot().RunAutopilot(ctx)
		if err != nil {
			slog.Error("Sweep failed", "error", err)
			return
		}
		logSweep(results)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down...")
			return nil
		case <-ticker.C:
			sweep()
		}
	}
}

func logSweep(results []autopilot.ExecutionResult) {
	if len(results) == 0 {
		slog.Debug("No due tasks")
		return
	}

	published := 0
	for _, r := range results {
		if r.Success {
			published++
		}
	}
	slog.Info("Sweep complete", "due", len(results), "published", published, "failed", len(results)-published)
}

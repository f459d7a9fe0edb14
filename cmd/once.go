package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single autopilot sweep",
	Long:  `Sweep the task queue once, uploading every task whose schedule has come due.`,
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	results, err := service.Autopilot().RunAutopilot(ctx)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println(infoStyle.Render("No due tasks"))
		return nil
	}

	for _, r := range results {
		if r.Success {
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s published as %s", r.TaskID, r.VideoID)))
			continue
		}
		fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", r.TaskID, r.Err.Message)))
	}

	slog.Debug("Sweep finished", "due", len(results))
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <task-id>",
	Short: "Upload a single task immediately",
	Long: `Claim and upload one task right now, bypassing its schedule. The task
must be queued or failed; drafts and pending tasks must be queued first.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	result := service.Autopilot().HandleSingleUpload(ctx, args[0])
	if !result.Success {
		return fmt.Errorf("upload %s: %s", result.TaskID, result.Err.Message)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Published as %s", result.VideoID)))
	fmt.Println(infoStyle.Render("  https://www.youtube.com/watch?v=" + result.VideoID))
	return nil
}

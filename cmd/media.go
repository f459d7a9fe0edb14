package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubepilot/internal/storage"
)

var mediaCmd = &cobra.Command{
	Use:   "media [gs://bucket/prefix]",
	Short: "List available source media",
	Long: `List the files tasks can reference as upload sources.

Without arguments the local media directory is listed. Pass a gs://
reference to list bucket contents instead (requires gcs.enabled).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMedia,
}

func init() {
	rootCmd.AddCommand(mediaCmd)
}

func runMedia(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	var refs []string
	if len(args) == 1 {
		gcs := service.GCS()
		if gcs == nil {
			return fmt.Errorf("cloud storage is not enabled, set gcs.enabled in config.yaml")
		}
		refs, err = gcs.List(ctx, args[0])
	} else {
		refs, err = storage.NewLocalStorage(service.Config().MediaDir).List()
	}
	if err != nil {
		return err
	}

	if len(refs) == 0 {
		fmt.Println(infoStyle.Render("No media found"))
		return nil
	}

	fmt.Println(titleStyle.Render("Media"))
	for _, ref := range refs {
		fmt.Println("  " + ref)
	}
	return nil
}

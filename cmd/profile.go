package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"tubepilot/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage AI metadata profiles",
}

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or update an AI profile",
	Long:  `Create a named profile that biases AI metadata planning. Re-adding a name updates it.`,
	RunE:  runProfileAdd,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List AI profiles",
	RunE:  runProfileList,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an AI profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

func init() {
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	profile := &model.AIProfile{}
	var keywordsInput string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&profile.Name).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < 2 {
						return errors.New("name must be at least 2 characters")
					}
					return nil
				}),
			huh.NewText().
				Title("Prompt").
				Description("Persona and style instructions for the planner").
				Value(&profile.Prompt).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < 20 {
						return errors.New("prompt must be at least 20 characters")
					}
					return nil
				}),
			huh.NewInput().
				Title("Tone").
				Placeholder("energetic but professional").
				Value(&profile.Tone),
			huh.NewInput().
				Title("Keywords").
				Description("Comma-separated, optional").
				Value(&keywordsInput),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	profile.Keywords = splitTags(keywordsInput)
	if err := service.Store().UpsertProfile(ctx, profile); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Profile saved: " + profile.Name))
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	profiles, err := service.Store().ListProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println(infoStyle.Render("No profiles"))
		return nil
	}

	for _, p := range profiles {
		tone := p.Tone
		if tone == "" {
			tone = "-"
		}
		fmt.Printf("%-20s  tone=%s  keywords=%s\n", p.Name, tone, strings.Join(p.Keywords, ","))
	}
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	if err := service.Store().DeleteProfile(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Profile deleted"))
	return nil
}

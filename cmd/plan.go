package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"tubepilot/internal/metadata"
	"tubepilot/internal/model"
)

var (
	planProfile string
	planTopic   string
)

var planCmd = &cobra.Command{
	Use:   "plan <task-id>",
	Short: "Generate AI metadata for a task",
	Long: `Generate a metadata plan for a task with the configured LLM and apply
it to the task's title, description, and tags. The task's transcript, when
present, grounds the plan.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planProfile, "profile", "p", "", "AI profile name to bias the plan")
	planCmd.Flags().StringVarP(&planTopic, "topic", "t", "", "Topic override (defaults to the task title)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	planner := service.Planner()
	if planner == nil {
		return errors.New("metadata planning requires GROQ_API_KEY")
	}

	task, err := service.Store().GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	var profile *model.AIProfile
	if planProfile != "" {
		profile, err = service.Store().GetProfileByName(ctx, planProfile)
		if err != nil {
			return err
		}
	}

	topic := planTopic
	if topic == "" {
		topic = task.Title
	}

	var (
		plan    *metadata.Plan
		planErr error
	)
	_ = spinner.New().
		Title("Planning metadata").
		Action(func() {
			plan, planErr = planner.Plan(ctx, metadata.PlanRequest{
				Topic:      topic,
				Transcript: task.Transcript,
				Profile:    profile,
			})
		}).
		Run()
	if planErr != nil {
		return planErr
	}

	if err := metadata.Apply(task, plan); err != nil {
		return err
	}
	if err := service.Store().UpdateTask(ctx, task); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Metadata planned"))
	fmt.Println(titleStyle.Render(task.Title))
	fmt.Println(task.Description)
	if task.AISummary != "" {
		fmt.Println(infoStyle.Render("\n" + task.AISummary))
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"tubepilot/internal/app"
	"tubepilot/internal/model"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage upload tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an upload task interactively",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all upload tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskQueueCmd = &cobra.Command{
	Use:   "queue <task-id>",
	Short: "Queue a pending or draft task for upload",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskQueue,
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry <task-id>",
	Short: "Put a failed task back in the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRetry,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDelete,
}

func init() {
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskQueueCmd)
	taskCmd.AddCommand(taskRetryCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	fmt.Println(titleStyle.Render("New upload task"))

	task, queueNow, err := taskForm(ctx, service)
	if err != nil {
		return err
	}

	if err := service.Store().CreateTask(ctx, task); err != nil {
		return err
	}
	if queueNow {
		if err := service.Store().QueueTask(ctx, task.ID); err != nil {
			return err
		}
	}

	fmt.Println(successStyle.Render("✓ Task created: " + task.ID))
	return nil
}

func taskForm(ctx context.Context, service *app.Service) (*model.UploadTask, bool, error) {
	accounts, err := service.Store().ListAccounts(ctx)
	if err != nil {
		return nil, false, err
	}

	accountOptions := []huh.Option[string]{huh.NewOption("none (set later)", "")}
	for _, a := range accounts {
		accountOptions = append(accountOptions, huh.NewOption(fmt.Sprintf("%s (%s)", a.Label, a.ID), a.ID))
	}

	task := &model.UploadTask{
		Visibility: model.VisibilityPrivate,
	}

	var (
		tagsInput    string
		scheduleWhen string
		queueNow     bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&task.Title).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < 3 {
						return errors.New("title must be at least 3 characters")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Value(&task.Description).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < 10 {
						return errors.New("description must be at least 10 characters")
					}
					return nil
				}),
			huh.NewInput().
				Title("Tags").
				Description("Comma-separated, optional").
				Value(&tagsInput),
		),
		huh.NewGroup(
			huh.NewSelect[model.SourceType]().
				Title("Source type").
				Options(
					huh.NewOption("Local or gs:// file", model.SourceFile),
					huh.NewOption("Remote URL", model.SourceRemote),
				).
				Value(&task.SourceType),
			huh.NewInput().
				Title("Source").
				Description("File path, gs:// reference, or http(s) URL").
				Value(&task.SourceValue).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("source is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Account").
				Options(accountOptions...).
				Value(&task.AccountID),
		),
		huh.NewGroup(
			huh.NewSelect[model.ScheduleType]().
				Title("Schedule").
				Options(
					huh.NewOption("Immediately on next sweep", model.ScheduleImmediate),
					huh.NewOption("At a specific time", model.ScheduleScheduled),
					huh.NewOption("Draft (never auto-published)", model.ScheduleDraft),
				).
				Value(&task.ScheduleType),
			huh.NewInput().
				Title("Publish at").
				Description("RFC 3339, e.g. 2026-09-01T18:00:00Z (scheduled only)").
				Value(&scheduleWhen),
			huh.NewSelect[model.Visibility]().
				Title("Visibility").
				Options(
					huh.NewOption("Private", model.VisibilityPrivate),
					huh.NewOption("Unlisted", model.VisibilityUnlisted),
					huh.NewOption("Public", model.VisibilityPublic),
				).
				Value(&task.Visibility),
			huh.NewConfirm().
				Title("Queue for upload now?").
				Value(&queueNow),
		),
	)

	if err := form.Run(); err != nil {
		return nil, false, err
	}

	task.Tags = splitTags(tagsInput)
	if task.ScheduleType == model.ScheduleScheduled {
		when, err := time.Parse(time.RFC3339, strings.TrimSpace(scheduleWhen))
		if err != nil {
			return nil, false, fmt.Errorf("parse publish time: %w", err)
		}
		utc := when.UTC()
		task.ScheduledFor = &utc
	}
	task.Status = model.StatusPending
	if task.ScheduleType == model.ScheduleDraft {
		task.Status = model.StatusDraft
		queueNow = false
	}

	if err := task.Validate(); err != nil {
		return nil, false, err
	}
	return task, queueNow, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func runTaskList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	tasks, err := service.Store().ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println(infoStyle.Render("No tasks"))
		return nil
	}

	for _, t := range tasks {
		fmt.Printf("%-36s  %-10s  %-10s  %s\n", t.ID, t.Status, t.ScheduleType, t.Title)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	t, err := service.Store().GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(t.Title))
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Status:      %s\n", t.Status)
	fmt.Printf("Schedule:    %s\n", t.ScheduleType)
	if t.ScheduledFor != nil {
		fmt.Printf("Publish at:  %s\n", t.ScheduledFor.Format(time.RFC3339))
	}
	fmt.Printf("Source:      %s %s\n", t.SourceType, t.SourceValue)
	fmt.Printf("Account:     %s\n", orDash(t.AccountID))
	fmt.Printf("Visibility:  %s\n", t.Visibility)
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(t.Tags, ", "))
	}
	if t.FailureReason != "" {
		fmt.Println(errorStyle.Render("Failure:     " + t.FailureReason))
	}
	if t.AISummary != "" {
		fmt.Println(infoStyle.Render("\n" + t.AISummary))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runTaskQueue(cmd *cobra.Command, args []string) error {
	return taskTransition(cmd, args[0], "queued", func(ctx context.Context, service *app.Service, id string) error {
		return service.Store().QueueTask(ctx, id)
	})
}

func runTaskRetry(cmd *cobra.Command, args []string) error {
	return taskTransition(cmd, args[0], "requeued for retry", func(ctx context.Context, service *app.Service, id string) error {
		return service.Store().ResetTask(ctx, id)
	})
}

func taskTransition(cmd *cobra.Command, id, verb string, fn func(context.Context, *app.Service, string) error) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	if err := fn(ctx, service, id); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Task %s %s", id, verb)))
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	if err := service.Store().DeleteTask(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Task deleted"))
	return nil
}

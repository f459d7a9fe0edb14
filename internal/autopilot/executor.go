// Package autopilot drives the upload task lifecycle: claiming, executing
// and finalizing single tasks, and orchestrating batches of them.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"tubepilot/internal/auth"
	"tubepilot/internal/model"
	"tubepilot/internal/store"
	"tubepilot/internal/uploader"
)

// TaskStore is the persistence contract the autopilot depends on. The
// conditional update behind ClaimTask is the only synchronization
// primitive: it succeeds for at most one caller when triggers race.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*model.UploadTask, error)
	ListTasks(ctx context.Context) ([]model.UploadTask, error)
	ClaimTask(ctx context.Context, id string) (*model.UploadTask, error)
	FinishTask(ctx context.Context, id string, status model.Status, reason string) error
}

// CredentialResolver yields access tokens for task accounts.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID string, cache *auth.TokenCache) (string, error)
}

// SourceValidator checks and adapts a task's video source.
type SourceValidator interface {
	Validate(ctx context.Context, t *model.UploadTask) error
	Source(t *model.UploadTask) uploader.Source
}

// Timeouts bound the blocking calls of one execution. Zero values use
// defaults.
type Timeouts struct {
	SourceCheck time.Duration
	Upload      time.Duration
}

const (
	defaultSourceCheckTimeout = 30 * time.Second
	defaultUploadTimeout      = 30 * time.Minute
)

// Executor runs the full single-task pipeline: claim, resolve credentials,
// validate source, upload, finalize.
type Executor struct {
	tasks    TaskStore
	creds    CredentialResolver
	sources  SourceValidator
	uploads  uploader.Client
	timeouts Timeouts
}

// ExecutorOptions collects the executor's collaborators.
type ExecutorOptions struct {
	Tasks    TaskStore
	Creds    CredentialResolver
	Sources  SourceValidator
	Uploads  uploader.Client
	Timeouts Timeouts
}

// NewExecutor builds an executor.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.Timeouts.SourceCheck == 0 {
		opts.Timeouts.SourceCheck = defaultSourceCheckTimeout
	}
	if opts.Timeouts.Upload == 0 {
		opts.Timeouts.Upload = defaultUploadTimeout
	}
	return &Executor{
		tasks:    opts.Tasks,
		creds:    opts.Creds,
		sources:  opts.Sources,
		uploads:  opts.Uploads,
		timeouts: opts.Timeouts,
	}
}

// Execute runs one task to a terminal status. After a successful claim the
// task always ends in published or failed, never uploading: every error,
// including an unexpected panic, is converted into a failed finalization.
func (e *Executor) Execute(ctx context.Context, taskID string, cache *auth.TokenCache) (result ExecutionResult) {
	result = ExecutionResult{TaskID: taskID}

	task, err := e.tasks.ClaimTask(ctx, taskID)
	if err != nil {
		result.Err = claimError(err)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			taskErr := &TaskError{Kind: KindInternal, Message: fmt.Sprintf("unexpected fault: %v", r)}
			e.finalizeFailed(ctx, taskID, taskErr)
			result.Success = false
			result.Err = taskErr
		}
	}()

	token, err := e.creds.Resolve(ctx, task.AccountID, cache)
	if err != nil {
		return e.fail(ctx, result, credentialError(err))
	}

	checkCtx, cancel := context.WithTimeout(ctx, e.timeouts.SourceCheck)
	err = e.sources.Validate(checkCtx, task)
	cancel()
	if err != nil {
		return e.fail(ctx, result, &TaskError{
			Kind:      KindSourceUnavailable,
			Retryable: isTimeout(err),
			Message:   err.Error(),
		})
	}

	uploadCtx, cancel := context.WithTimeout(ctx, e.timeouts.Upload)
	uploadResult, err := e.uploads.Upload(uploadCtx, token, payloadFrom(task), e.sources.Source(task))
	cancel()
	if err != nil {
		return e.fail(ctx, result, uploadError(err))
	}

	if err := e.tasks.FinishTask(ctx, taskID, model.StatusPublished, ""); err != nil {
		slog.Error("Failed to record published status", "task", taskID, "error", err)
		result.Err = &TaskError{Kind: KindInternal, Message: fmt.Sprintf("record result: %v", err)}
		return result
	}

	if task.ThumbnailURL != "" {
		// Best effort: the video is already published.
		if err := e.uploads.SetThumbnail(ctx, token, uploadResult.VideoID, task.ThumbnailURL); err != nil {
			slog.Warn("Failed to set thumbnail", "task", taskID, "error", err)
		}
	}

	result.Success = true
	result.VideoID = uploadResult.VideoID
	return result
}

// fail finalizes a claimed task into failed and fills the result.
func (e *Executor) fail(ctx context.Context, result ExecutionResult, taskErr *TaskError) ExecutionResult {
	e.finalizeFailed(ctx, result.TaskID, taskErr)
	result.Success = false
	result.Err = taskErr
	return result
}

func (e *Executor) finalizeFailed(ctx context.Context, taskID string, taskErr *TaskError) {
	if err := e.tasks.FinishTask(ctx, taskID, model.StatusFailed, taskErr.Message); err != nil {
		// Only store unavailability can leave a task in uploading; the
		// load-time recovery pass cleans those up.
		slog.Error("Failed to record failure", "task", taskID, "error", err)
	}
}

func payloadFrom(t *model.UploadTask) uploader.Payload {
	return uploader.Payload{
		Title:       t.Title,
		Description: t.Description,
		Tags:        t.Tags,
		CategoryID:  t.CategoryID,
		Privacy:     string(t.Visibility),
		Language:    t.Language,
		MadeForKids: t.MadeForKids,
	}
}

func claimError(err error) *TaskError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &TaskError{Kind: KindNotFound, Message: "task not found"}
	case errors.Is(err, store.ErrInvalidState):
		return &TaskError{Kind: KindInvalidState, Message: "task is not in a claimable status"}
	default:
		return &TaskError{Kind: KindInternal, Retryable: true, Message: fmt.Sprintf("claim task: %v", err)}
	}
}

func credentialError(err error) *TaskError {
	var configErr *auth.ConfigError
	var refreshErr *auth.RefreshError
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return &TaskError{Kind: KindMissingCredentials, Message: err.Error()}
	case errors.As(err, &configErr):
		return &TaskError{Kind: KindConfiguration, Message: err.Error()}
	case errors.As(err, &refreshErr):
		return &TaskError{Kind: KindAuthRefresh, Retryable: true, Message: err.Error()}
	default:
		return &TaskError{Kind: KindInternal, Retryable: true, Message: err.Error()}
	}
}

func uploadError(err error) *TaskError {
	var upErr *uploader.Error
	if errors.As(err, &upErr) {
		return &TaskError{Kind: KindUpload, Retryable: upErr.Retryable, Message: upErr.Error()}
	}
	return &TaskError{Kind: KindInternal, Retryable: true, Message: err.Error()}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

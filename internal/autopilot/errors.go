package autopilot

import "fmt"

// Kind labels the failure class of a task execution.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidState       Kind = "invalid_state"
	KindMissingCredentials Kind = "missing_credentials"
	KindConfiguration      Kind = "configuration_error"
	KindAuthRefresh        Kind = "auth_refresh_error"
	KindSourceUnavailable  Kind = "source_unavailable"
	KindUpload             Kind = "upload_error"
	KindInternal           Kind = "internal_error"
)

// TaskError is the structured failure recorded into an ExecutionResult.
// Retryable failures clear on a later run after an explicit retry; nothing
// is retried automatically.
type TaskError struct {
	Kind      Kind   `json:"kind"`
	Retryable bool   `json:"retryable"`
	Message   string `json:"message"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ExecutionResult is the per-task outcome of one execution attempt.
type ExecutionResult struct {
	TaskID  string     `json:"task_id"`
	Success bool       `json:"success"`
	VideoID string     `json:"video_id,omitempty"`
	Err     *TaskError `json:"error,omitempty"`
}

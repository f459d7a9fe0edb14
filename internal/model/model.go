// Package model defines the records the autopilot operates on: upload
// tasks, per-channel YouTube accounts, and reusable AI personas.
package model

import (
	"fmt"
	"net/url"
	"time"
)

// Status is the lifecycle state of an upload task. The status field doubles
// as the concurrency lock: a task is claimed by conditionally moving it into
// StatusUploading, so at most one executor can hold it at a time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusDraft     Status = "draft"
)

// ScheduleType controls when a queued task becomes eligible to run.
type ScheduleType string

const (
	ScheduleImmediate ScheduleType = "immediate"
	ScheduleScheduled ScheduleType = "scheduled"
	ScheduleDraft     ScheduleType = "draft"
)

// SourceType says where the video bytes come from.
type SourceType string

const (
	SourceFile   SourceType = "file"
	SourceRemote SourceType = "remote"
)

// Visibility is the YouTube privacy status applied on publish.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// validTransitions holds the only legal status edges. Claiming covers the
// {queued, failed} → uploading edges; the executor finalizes along
// uploading → {published, failed}; an explicit retry resets failed → queued.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusQueued},
	StatusDraft:     {StatusQueued},
	StatusQueued:    {StatusUploading},
	StatusFailed:    {StatusUploading, StatusQueued},
	StatusUploading: {StatusPublished, StatusFailed},
}

// CanTransition reports whether from → to is a legal status edge.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Claimable reports whether a task in this status may be claimed for
// execution.
func (s Status) Claimable() bool {
	return s == StatusQueued || s == StatusFailed
}

// Terminal reports whether the status is a resting state for the executor.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusFailed
}

// UploadTask is one unit of automation work: a single video to publish,
// with its metadata, source, schedule and lifecycle state.
type UploadTask struct {
	ID string `json:"id"`

	// AccountID is a weak reference to a YoutubeAccount. Empty means the
	// task is unassigned and cannot be executed until an account is set.
	AccountID string `json:"account_id,omitempty"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	CategoryID  string     `json:"category_id,omitempty"`
	Language    string     `json:"language,omitempty"`
	Visibility  Visibility `json:"visibility"`
	MadeForKids bool       `json:"made_for_kids"`

	ScheduleType ScheduleType `json:"schedule_type"`
	// ScheduledFor is set iff ScheduleType is ScheduleScheduled. UTC.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	SourceType   SourceType `json:"source_type"`
	SourceValue  string     `json:"source_value"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`

	// AI-authored planning fields. Inputs to the executor, never mutated
	// by it, and never interpreted beyond presence.
	AISummary      string `json:"ai_summary,omitempty"`
	AutomationPlan string `json:"automation_plan,omitempty"`
	Transcript     string `json:"transcript,omitempty"`

	Status Status `json:"status"`
	// FailureReason is non-empty iff Status is StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the task's field invariants before it is persisted.
func (t *UploadTask) Validate() error {
	if len(t.Title) < 3 {
		return fmt.Errorf("title must be at least 3 characters")
	}
	if len(t.Description) < 10 {
		return fmt.Errorf("description must be at least 10 characters")
	}
	switch t.Visibility {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
	default:
		return fmt.Errorf("invalid visibility %q", t.Visibility)
	}
	switch t.ScheduleType {
	case ScheduleImmediate, ScheduleDraft:
		if t.ScheduledFor != nil {
			return fmt.Errorf("scheduled_for must be unset for %s tasks", t.ScheduleType)
		}
	case ScheduleScheduled:
		if t.ScheduledFor == nil {
			return fmt.Errorf("scheduled_for is required for scheduled tasks")
		}
	default:
		return fmt.Errorf("invalid schedule type %q", t.ScheduleType)
	}
	switch t.SourceType {
	case SourceFile:
		if t.SourceValue == "" {
			return fmt.Errorf("source_value is required")
		}
	case SourceRemote:
		u, err := url.Parse(t.SourceValue)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source_value must be an http(s) URL for remote sources")
		}
	default:
		return fmt.Errorf("invalid source type %q", t.SourceType)
	}
	switch t.Status {
	case StatusPending, StatusQueued, StatusUploading, StatusPublished, StatusFailed, StatusDraft:
	default:
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if (t.FailureReason != "") != (t.Status == StatusFailed) {
		return fmt.Errorf("failure_reason must be set iff status is failed")
	}
	return nil
}

// YoutubeAccount is a credential bundle bound to one destination channel.
// The refresh token is long-lived; access tokens are redeemed from it per
// autopilot run and never persisted.
type YoutubeAccount struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	RedirectURI  string    `json:"redirect_uri"`
	RefreshToken string    `json:"refresh_token"`
	Scopes       []string  `json:"scopes"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultScopes is applied when an account registers with no explicit scope
// list.
var DefaultScopes = []string{"https://www.googleapis.com/auth/youtube.upload"}

// Validate checks the account's required fields.
func (a *YoutubeAccount) Validate() error {
	if len(a.Label) < 2 {
		return fmt.Errorf("label must be at least 2 characters")
	}
	if a.ClientID == "" || a.ClientSecret == "" {
		return fmt.Errorf("client_id and client_secret are required")
	}
	if a.RefreshToken == "" {
		return fmt.Errorf("refresh_token is required")
	}
	if u, err := url.Parse(a.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("redirect_uri must be a valid URL")
	}
	return nil
}

// AIProfile is a reusable persona applied at planning time to bias
// generated metadata. Pure input data; it is never read by the executor.
type AIProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	Tone      string    `json:"tone"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the profile's required fields.
func (p *AIProfile) Validate() error {
	if len(p.Name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	if len(p.Prompt) < 20 {
		return fmt.Errorf("prompt must be at least 20 characters")
	}
	return nil
}

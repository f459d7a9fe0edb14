package model

import (
	"strings"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pendingToQueued", StatusPending, StatusQueued, true},
		{"draftToQueued", StatusDraft, StatusQueued, true},
		{"queuedToUploading", StatusQueued, StatusUploading, true},
		{"failedToUploading", StatusFailed, StatusUploading, true},
		{"failedToQueued", StatusFailed, StatusQueued, true},
		{"uploadingToPublished", StatusUploading, StatusPublished, true},
		{"uploadingToFailed", StatusUploading, StatusFailed, true},
		{"pendingToUploading", StatusPending, StatusUploading, false},
		{"draftToUploading", StatusDraft, StatusUploading, false},
		{"publishedToAnything", StatusPublished, StatusQueued, false},
		{"queuedToPublished", StatusQueued, StatusPublished, false},
		{"uploadingToQueued", StatusUploading, StatusQueued, false},
		{"selfTransition", StatusQueued, StatusQueued, false},
		{"unknownStatus", Status("bogus"), StatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusClaimable(t *testing.T) {
	claimable := map[Status]bool{
		StatusPending:   false,
		StatusQueued:    true,
		StatusUploading: false,
		StatusPublished: false,
		StatusFailed:    true,
		StatusDraft:     false,
	}
	for status, want := range claimable {
		if got := status.Claimable(); got != want {
			t.Errorf("%s.Claimable() = %v, want %v", status, got, want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:   false,
		StatusQueued:    false,
		StatusUploading: false,
		StatusPublished: true,
		StatusFailed:    true,
		StatusDraft:     false,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func validTask() *UploadTask {
	return &UploadTask{
		Title:        "My first upload",
		Description:  "A long enough description",
		Visibility:   VisibilityPrivate,
		ScheduleType: ScheduleImmediate,
		SourceType:   SourceFile,
		SourceValue:  "clips/intro.mp4",
		Status:       StatusPending,
	}
}

func TestTaskValidate(t *testing.T) {
	when := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*UploadTask)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(task *UploadTask) {},
		},
		{
			name: "validScheduled",
			mutate: func(task *UploadTask) {
				task.ScheduleType = ScheduleScheduled
				task.ScheduledFor = &when
			},
		},
		{
			name: "validRemote",
			mutate: func(task *UploadTask) {
				task.SourceType = SourceRemote
				task.SourceValue = "https://cdn.example.com/v/intro.mp4"
			},
		},
		{
			name:    "shortTitle",
			mutate:  func(task *UploadTask) { task.Title = "ab" },
			wantErr: "title",
		},
		{
			name:    "shortDescription",
			mutate:  func(task *UploadTask) { task.Description = "short" },
			wantErr: "description",
		},
		{
			name:    "badVisibility",
			mutate:  func(task *UploadTask) { task.Visibility = "secret" },
			wantErr: "visibility",
		},
		{
			name: "scheduledWithoutTime",
			mutate: func(task *UploadTask) {
				task.ScheduleType = ScheduleScheduled
			},
			wantErr: "scheduled_for",
		},
		{
			name: "immediateWithTime",
			mutate: func(task *UploadTask) {
				task.ScheduledFor = &when
			},
			wantErr: "scheduled_for",
		},
		{
			name:    "emptyFileSource",
			mutate:  func(task *UploadTask) { task.SourceValue = "" },
			wantErr: "source_value",
		},
		{
			name: "remoteWithoutScheme",
			mutate: func(task *UploadTask) {
				task.SourceType = SourceRemote
				task.SourceValue = "cdn.example.com/v/intro.mp4"
			},
			wantErr: "http(s)",
		},
		{
			name: "remoteWithFtpScheme",
			mutate: func(task *UploadTask) {
				task.SourceType = SourceRemote
				task.SourceValue = "ftp://cdn.example.com/v/intro.mp4"
			},
			wantErr: "http(s)",
		},
		{
			name:    "unknownStatus",
			mutate:  func(task *UploadTask) { task.Status = "archived" },
			wantErr: "status",
		},
		{
			name: "failureReasonWithoutFailedStatus",
			mutate: func(task *UploadTask) {
				task.FailureReason = "quota exceeded"
			},
			wantErr: "failure_reason",
		},
		{
			name: "failedStatusWithoutReason",
			mutate: func(task *UploadTask) {
				task.Status = StatusFailed
			},
			wantErr: "failure_reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(task)

			err := task.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	valid := YoutubeAccount{
		Label:        "main channel",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://developers.google.com/oauthplayground",
		RefreshToken: "refresh-token",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	short := valid
	short.Label = "x"
	if err := short.Validate(); err == nil {
		t.Error("expected error for one-character label")
	}

	noToken := valid
	noToken.RefreshToken = ""
	if err := noToken.Validate(); err == nil {
		t.Error("expected error for missing refresh token")
	}

	noRedirect := valid
	noRedirect.RedirectURI = ""
	if err := noRedirect.Validate(); err == nil {
		t.Error("expected error for missing redirect URI")
	}

	badRedirect := valid
	badRedirect.RedirectURI = "not-a-url"
	if err := badRedirect.Validate(); err == nil {
		t.Error("expected error for malformed redirect URI")
	}
}

func TestProfileValidate(t *testing.T) {
	valid := AIProfile{
		Name:   "tech-explainer",
		Prompt: "Friendly but precise explainer of developer tools.",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	shortPrompt := valid
	shortPrompt.Prompt = "too short"
	if err := shortPrompt.Validate(); err == nil {
		t.Error("expected error for short prompt")
	}
}

// Package schedule decides when a task is due to run.
package schedule

import (
	"time"

	"tubepilot/internal/model"
)

// IsEligible reports whether the autopilot may execute the task at the
// given time. Only queued tasks are admitted; failed tasks re-enter the
// rotation through an explicit retry that resets them to queued first.
// A scheduled task whose scheduledFor equals now is due.
func IsEligible(t *model.UploadTask, now time.Time) bool {
	if t.ScheduleType == model.ScheduleDraft {
		return false
	}
	if t.Status != model.StatusQueued {
		return false
	}

	switch t.ScheduleType {
	case model.ScheduleImmediate:
		return true
	case model.ScheduleScheduled:
		return t.ScheduledFor != nil && !t.ScheduledFor.After(now)
	}
	return false
}

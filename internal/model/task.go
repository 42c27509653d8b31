package model

import "time"

// Task statuses. A task in a closed status never receives reminders.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a follow-up item assigned to a contact, with a recurring
// reminder cadence described by StartAt/FreqDays/RemindForDays.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `json:"description"`
	Status      string     `gorm:"size:32;not null" json:"status"`
	Priority    string     `gorm:"size:16;not null" json:"priority"`
	DueAt       *time.Time `json:"due_at"`

	AssigneeID uint    `gorm:"not null;index" json:"assignee_id"`
	Assignee   Contact `gorm:"foreignKey:AssigneeID" json:"assignee"`

	// Cadence values are stored exactly as given; sloppy input is
	// clamped when the trigger is built, never at rest. No column
	// defaults here: a zero value is meaningful (a window that never
	// fires) and must survive the insert.
	StartAt       time.Time `gorm:"not null" json:"start_at"` // first reminder instant
	FreqDays      int       `json:"freq_days"`                // days between reminders
	RemindForDays int       `json:"remind_for_days"`          // window length from StartAt

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CommentsCount int64 `gorm:"-" json:"comments_count"`
}

// Closed reports whether the task is in a terminal status.
func (t *Task) Closed() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

package model

import "time"

// TaskComment is an append-only log entry for a task. Besides user
// comments it records system audit entries such as status changes.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	Author    string    `gorm:"size:120" json:"author"`
	Body      string    `gorm:"not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

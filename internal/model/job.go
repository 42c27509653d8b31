package model

import "time"

// ScheduledJob is the durable reminder schedule for one task. Keyed by
// task id, so a task can never have more than one live job. EndAt is
// exclusive: no fire happens at or after it. A zero NextFireAt marks a
// job whose window held no valid instants; the engine retires it on the
// next tick without dispatching.
type ScheduledJob struct {
	TaskID     uint      `gorm:"primaryKey" json:"task_id"`
	StartAt    time.Time `gorm:"not null" json:"start_at"`
	EndAt      time.Time `gorm:"not null" json:"end_at"`
	FreqDays   int       `gorm:"not null" json:"freq_days"`
	NextFireAt time.Time `gorm:"index" json:"next_fire_at"`
	Timezone   string    `gorm:"size:64" json:"timezone"`
	UpdatedAt  time.Time `json:"updated_at"`
}

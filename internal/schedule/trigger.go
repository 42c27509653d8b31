package schedule

import (
	"time"

	"taskping/internal/model"
)

// Trigger describes a fixed-interval reminder series: fires at
// StartAt + k*FreqDays days for k >= 0, strictly before EndAt.
// Day steps are wall-clock (AddDate), so a 09:00 reminder stays a
// 09:00 reminder across DST changes in the trigger's location.
type Trigger struct {
	StartAt  time.Time
	EndAt    time.Time // exclusive
	FreqDays int
}

// NewTrigger builds a trigger from raw task parameters. Sloppy input is
// clamped rather than rejected: freqDays below 1 becomes daily, a
// negative remindForDays becomes 0. remindForDays = 0 produces an empty
// window (EndAt == StartAt), i.e. a trigger that never fires.
func NewTrigger(startAt time.Time, freqDays, remindForDays int) Trigger {
	if freqDays < 1 {
		freqDays = 1
	}
	if remindForDays < 0 {
		remindForDays = 0
	}
	return Trigger{
		StartAt:  startAt,
		EndAt:    startAt.AddDate(0, 0, remindForDays),
		FreqDays: freqDays,
	}
}

// TriggerFromJob rebuilds the trigger a persisted job was created from.
func TriggerFromJob(job *model.ScheduledJob, fallback *time.Location) Trigger {
	loc := fallback
	if job.Timezone != "" {
		if l, err := time.LoadLocation(job.Timezone); err == nil {
			loc = l
		}
	}
	freq := job.FreqDays
	if freq < 1 {
		freq = 1
	}
	return Trigger{
		StartAt:  job.StartAt.In(loc),
		EndAt:    job.EndAt.In(loc),
		FreqDays: freq,
	}
}

// NextFrom returns the earliest valid fire instant at or after t, or
// ok=false when the window holds no such instant.
func (tr Trigger) NextFrom(t time.Time) (time.Time, bool) {
	next := tr.StartAt
	for next.Before(t) {
		if !next.Before(tr.EndAt) {
			return time.Time{}, false
		}
		next = next.AddDate(0, 0, tr.FreqDays)
	}
	if !next.Before(tr.EndAt) {
		return time.Time{}, false
	}
	return next, true
}

// NextAfter returns the earliest valid fire instant strictly after t,
// or ok=false when the window is exhausted.
func (tr Trigger) NextAfter(t time.Time) (time.Time, bool) {
	next := tr.StartAt
	for !next.After(t) {
		if !next.Before(tr.EndAt) {
			return time.Time{}, false
		}
		next = next.AddDate(0, 0, tr.FreqDays)
	}
	if !next.Before(tr.EndAt) {
		return time.Time{}, false
	}
	return next, true
}

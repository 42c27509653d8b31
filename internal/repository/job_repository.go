package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskping/internal/model"
)

// JobRepository is the durable job store: one row per task holding its
// reminder schedule and next fire instant. Rows survive restarts, so the
// engine reconstructs the exact live job set without recomputation.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Put inserts or replaces the job for a task in a single statement.
// Keyed by task id, so scheduling a task that already has a job
// atomically replaces the old definition.
func (r *JobRepository) Put(ctx context.Context, job *model.ScheduledJob) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		UpdateAll: true,
	}).Create(job).Error
	if err != nil {
		return fmt.Errorf("put job for task %d: %w", job.TaskID, err)
	}
	return nil
}

// Remove deletes the job for a task. Absence is not an error; the
// returned flag tells the caller whether anything was removed.
func (r *JobRepository) Remove(ctx context.Context, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.ScheduledJob{}, "task_id = ?", taskID)
	if res.Error != nil {
		return false, fmt.Errorf("remove job for task %d: %w", taskID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Get returns the job for a task, or nil when none exists.
func (r *JobRepository) Get(ctx context.Context, taskID uint) (*model.ScheduledJob, error) {
	var job model.ScheduledJob
	err := r.db.WithContext(ctx).First(&job, "task_id = ?", taskID).Error
	switch {
	case err == nil:
		return &job, nil
	case err == gorm.ErrRecordNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("get job for task %d: %w", taskID, err)
	}
}

// ListAll returns every live job, soonest first, for inspection.
func (r *JobRepository) ListAll(ctx context.Context) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := r.db.WithContext(ctx).Order("next_fire_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ListDue returns jobs whose next fire instant is at or before now.
// Jobs with a zero NextFireAt (empty window) are included so the engine
// can retire them.
func (r *JobRepository) ListDue(ctx context.Context, now time.Time) ([]model.ScheduledJob, error) {
	var jobs []model.ScheduledJob
	if err := r.db.WithContext(ctx).Where("next_fire_at <= ?", now).
		Order("next_fire_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	return jobs, nil
}

// Reschedule advances the next fire instant for a task's job.
func (r *JobRepository) Reschedule(ctx context.Context, taskID uint, next time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.ScheduledJob{}).
		Where("task_id = ?", taskID).Update("next_fire_at", next).Error
	if err != nil {
		return fmt.Errorf("reschedule job for task %d: %w", taskID, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskping/internal/model"
)

// TaskRepository handles CRUD for tasks and their comments.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID loads a task together with its assignee. The assignee is
// always needed by callers (dispatch, API responses), so it is preloaded.
func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Assignee").First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// List returns tasks newest-first, optionally filtered, with per-task
// comment counts attached.
func (r *TaskRepository) List(ctx context.Context, status string, assigneeID uint, search string) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Preload("Assignee").Order("created_at DESC")
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}
	if assigneeID != 0 {
		q = q.Where("assignee_id = ?", assigneeID)
	}
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}

	type row struct {
		TaskID uint
		N      int64
	}
	var counts []row
	if err := r.db.WithContext(ctx).Model(&model.TaskComment{}).
		Select("task_id, count(id) as n").Group("task_id").Scan(&counts).Error; err != nil {
		return nil, err
	}
	byTask := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byTask[c.TaskID] = c.N
	}
	for i := range tasks {
		tasks[i].CommentsCount = byTask[tasks[i].ID]
	}
	return tasks, nil
}

// UpdateStatusWithAudit sets the task status and appends the system
// audit comment in one transaction.
func (r *TaskRepository) UpdateStatusWithAudit(ctx context.Context, taskID uint, status string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Assignee").First(&task, taskID).Error; err != nil {
			return err
		}
		task.Status = status
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("save task: %w", err)
		}
		audit := model.TaskComment{
			TaskID: taskID,
			Author: "system",
			Body:   fmt.Sprintf("Status changed to %s", status),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("audit comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteWithComments removes the task's comments and then the task row
// in one transaction. Returns false when the task does not exist.
func (r *TaskRepository) DeleteWithComments(ctx context.Context, taskID uint) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		found = true
		if err := tx.Where("task_id = ?", taskID).Delete(&model.TaskComment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Delete(&task).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (r *TaskRepository) AddComment(ctx context.Context, comment *model.TaskComment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *TaskRepository) Comments(ctx context.Context, taskID uint) ([]model.TaskComment, error) {
	var comments []model.TaskComment
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

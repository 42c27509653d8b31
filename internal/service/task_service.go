package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskping/internal/model"
	"taskping/internal/repository"
	"taskping/internal/schedule"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrStartRequired    = errors.New("start_at is required")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPriority  = errors.New("invalid priority")
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title         string
	Description   string
	AssigneeID    uint
	Priority      string
	DueAt         *time.Time
	StartAt       time.Time
	FreqDays      int
	RemindForDays int
}

// TaskService wraps task CRUD and keeps the task record and its
// scheduled job consistent: every status change or deletion carries the
// matching schedule decision, with the schedule step last so a storage
// failure never leaves a stale job behind a changed task.
type TaskService struct {
	tasks    *repository.TaskRepository
	contacts *repository.ContactRepository
	engine   *schedule.Engine
	log      zerolog.Logger
}

func NewTaskService(tasks *repository.TaskRepository, contacts *repository.ContactRepository, engine *schedule.Engine, log zerolog.Logger) *TaskService {
	return &TaskService{tasks: tasks, contacts: contacts, engine: engine, log: log}
}

// Create stores a new open task and schedules its reminder job.
// Cadence parameters are stored as given; clamping happens when the
// trigger is built, a documented permissiveness toward sloppy input.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.StartAt.IsZero() {
		return nil, ErrStartRequired
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	assignee, err := s.contacts.GetByID(ctx, input.AssigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("load assignee: %w", err)
	}

	task := model.Task{
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Status:        model.StatusOpen,
		Priority:      priority,
		DueAt:         input.DueAt,
		AssigneeID:    assignee.ID,
		StartAt:       input.StartAt,
		FreqDays:      input.FreqDays,
		RemindForDays: input.RemindForDays,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	if err := s.engine.Schedule(ctx, &task); err != nil {
		return nil, fmt.Errorf("schedule task %d: %w", task.ID, err)
	}
	task.Assignee = *assignee
	s.log.Info().Uint("task_id", task.ID).Str("title", task.Title).Msg("task created and scheduled")
	return &task, nil
}

// UpdateStatus changes the status, writes the audit comment (one
// transaction) and then cancels or reschedules the job: closing retires
// it, reopening rebuilds it from the original cadence.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID uint, status string) (*model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	task, err := s.tasks.UpdateStatusWithAudit(ctx, taskID, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.Closed() {
		if _, err := s.engine.Cancel(ctx, taskID); err != nil {
			return nil, err
		}
	} else {
		if err := s.engine.Schedule(ctx, task); err != nil {
			return nil, err
		}
	}
	s.log.Info().Uint("task_id", taskID).Str("status", status).Msg("task status updated")
	return task, nil
}

// Delete cancels the job first, then removes comments and the task in
// one transaction, so no job is ever left referencing a missing task.
func (s *TaskService) Delete(ctx context.Context, taskID uint) (bool, error) {
	if _, err := s.engine.Cancel(ctx, taskID); err != nil {
		return false, err
	}
	found, err := s.tasks.DeleteWithComments(ctx, taskID)
	if err != nil {
		return false, err
	}
	if found {
		s.log.Info().Uint("task_id", taskID).Msg("task deleted")
	}
	return found, nil
}

// SendNow dispatches the reminder immediately, outside the schedule.
func (s *TaskService) SendNow(ctx context.Context, taskID uint) (schedule.Outcome, error) {
	return s.engine.RunNow(ctx, taskID)
}

func (s *TaskService) Get(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, status string, assigneeID uint, search string) ([]model.Task, error) {
	return s.tasks.List(ctx, status, assigneeID, strings.TrimSpace(search))
}

func (s *TaskService) AddComment(ctx context.Context, taskID uint, author, body string) (*model.TaskComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("empty comment")
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = "admin"
	}
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}
	comment := model.TaskComment{TaskID: taskID, Author: author, Body: body}
	if err := s.tasks.AddComment(ctx, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *TaskService) Comments(ctx context.Context, taskID uint) ([]model.TaskComment, error) {
	return s.tasks.Comments(ctx, taskID)
}

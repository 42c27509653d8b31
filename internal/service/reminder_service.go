package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskping/internal/messaging"
	"taskping/internal/repository"
	"taskping/internal/schedule"
)

// ErrTaskNotFound marks a dispatch or lookup against a task id that no
// longer exists.
var ErrTaskNotFound = errors.New("task not found")

// ReminderService is the dispatch adapter the engine fires into. It
// loads fresh task+assignee state, applies the status gate, renders the
// message and calls the outbound transport. Transport failures become a
// not-delivered outcome, never an engine crash, and trigger no early
// retry: the job simply waits for its next scheduled fire.
type ReminderService struct {
	tasks    *repository.TaskRepository
	settings *SettingService
	sender   messaging.Sender
	loc      *time.Location
	log      zerolog.Logger
}

func NewReminderService(tasks *repository.TaskRepository, settings *SettingService, sender messaging.Sender, loc *time.Location, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		tasks:    tasks,
		settings: settings,
		sender:   sender,
		loc:      loc,
		log:      log,
	}
}

// Dispatch implements schedule.Dispatcher.
func (s *ReminderService) Dispatch(ctx context.Context, taskID uint) (schedule.Outcome, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return schedule.Outcome{Detail: "task not found"}, fmt.Errorf("dispatch task %d: %w", taskID, ErrTaskNotFound)
		}
		return schedule.Outcome{Detail: err.Error()}, fmt.Errorf("load task %d: %w", taskID, err)
	}

	// Status may have changed since the job was scheduled. A job that
	// outlived its task's closing retires itself here instead of
	// requiring an external cancel call.
	if task.Closed() {
		return schedule.Outcome{
			Retire: true,
			Detail: fmt.Sprintf("task is %s; not sending", task.Status),
		}, nil
	}

	tpl, err := s.settings.Template(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("template load failed, using default")
		tpl = DefaultTemplate
	}
	body := RenderTemplate(tpl, task, &task.Assignee, s.loc)

	resp, err := s.sender.SendText(ctx, task.Assignee.ChatID, body)
	if err != nil {
		return schedule.Outcome{Delivered: false, Detail: err.Error()}, nil
	}
	return schedule.Outcome{Delivered: true, Detail: resp}, nil
}

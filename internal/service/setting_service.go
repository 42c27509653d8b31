package service

import (
	"context"
	"strings"

	"taskping/internal/model"
	"taskping/internal/repository"
)

// DefaultTemplate is the reminder message used until an admin saves a
// custom one.
const DefaultTemplate = `Hi {assignee_name}, what's the update on the task "{title}"? (Due: {due_date})`

// SettingService manages the singleton message template.
type SettingService struct {
	repo *repository.SettingRepository
}

func NewSettingService(repo *repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// Seed stores the default template once, if nothing is saved yet.
func (s *SettingService) Seed(ctx context.Context) error {
	current, err := s.repo.Get(ctx, model.SettingTemplate, "")
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	return s.repo.Set(ctx, model.SettingTemplate, DefaultTemplate)
}

func (s *SettingService) Template(ctx context.Context) (string, error) {
	return s.repo.Get(ctx, model.SettingTemplate, DefaultTemplate)
}

// SetTemplate saves the template; a blank value restores the default.
func (s *SettingService) SetTemplate(ctx context.Context, tpl string) error {
	tpl = strings.TrimSpace(tpl)
	if tpl == "" {
		tpl = DefaultTemplate
	}
	return s.repo.Set(ctx, model.SettingTemplate, tpl)
}

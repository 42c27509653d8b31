package service

import (
	"fmt"
	"strings"
	"time"

	"taskping/internal/model"
)

const dueTimeFormat = "02-Jan-2006 03:04 PM"

// RenderTemplate fills the reminder template placeholders from the
// current task and assignee state. Unknown placeholders are left as-is.
// Rendering must never break the dispatch path: an empty or unusable
// template falls back to a raw-field message.
func RenderTemplate(tpl string, task *model.Task, assignee *model.Contact, loc *time.Location) string {
	due := "N/A"
	if task.DueAt != nil {
		due = task.DueAt.In(loc).Format(dueTimeFormat)
	}

	desc := task.Description
	if runes := []rune(desc); len(runes) > 500 {
		desc = string(runes[:500])
	}

	rendered := strings.NewReplacer(
		"{assignee_name}", assignee.Name,
		"{title}", task.Title,
		"{description}", desc,
		"{due_date}", due,
		"{priority}", task.Priority,
		"{status}", task.Status,
	).Replace(tpl)

	if strings.TrimSpace(rendered) == "" {
		return fmt.Sprintf("Hi %s, reminder for task %q (due: %s)", assignee.Name, task.Title, due)
	}
	return rendered
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskping/internal/schedule"
	"taskping/internal/service"
)

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone" binding:"required"`
	Tags  string `json:"tags"`
	Note  string `json:"note"`
}

func (s *Server) upsertContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contact, err := s.contacts.Upsert(c.Request.Context(), req.Name, req.Phone, req.Tags, req.Note)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPhone) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
			return
		}
		s.log.Error().Err(err).Msg("upsert contact")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save contact"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (s *Server) listContacts(c *gin.Context) {
	contacts, err := s.contacts.List(c.Request.Context(), c.Query("search"), c.Query("tag"))
	if err != nil {
		s.log.Error().Err(err).Msg("list contacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

type taskRequest struct {
	Title         string     `json:"title" binding:"required"`
	Description   string     `json:"description"`
	AssigneeID    uint       `json:"assignee_id" binding:"required"`
	Priority      string     `json:"priority"`
	DueAt         *time.Time `json:"due_at"`
	StartAt       time.Time  `json:"start_at" binding:"required"`
	FreqDays      int        `json:"freq_days"`
	RemindForDays int        `json:"remind_for_days"`
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.tasks.Create(c.Request.Context(), service.TaskInput{
		Title:         req.Title,
		Description:   req.Description,
		AssigneeID:    req.AssigneeID,
		Priority:      req.Priority,
		DueAt:         req.DueAt,
		StartAt:       req.StartAt,
		FreqDays:      req.FreqDays,
		RemindForDays: req.RemindForDays,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTitleRequired),
			errors.Is(err, service.ErrStartRequired),
			errors.Is(err, service.ErrInvalidPriority):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrAssigneeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			s.log.Error().Err(err).Msg("create task")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		}
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) listTasks(c *gin.Context) {
	var assigneeID uint
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee_id"})
			return
		}
		assigneeID = uint(id)
	}
	tasks, err := s.tasks.List(c.Request.Context(), c.Query("status"), assigneeID, c.Query("search"))
	if err != nil {
		s.log.Error().Err(err).Msg("list tasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) getTask(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.log.Error().Err(err).Msg("get task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	found, err := s.tasks.Delete(c.Request.Context(), taskID)
	if err != nil {
		s.log.Error().Err(err).Msg("delete task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateTaskStatus(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.tasks.UpdateStatus(c.Request.Context(), taskID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		default:
			s.log.Error().Err(err).Msg("update task status")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) remindNow(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	out, err := s.tasks.SendNow(c.Request.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		default:
			s.log.Error().Err(err).Msg("remind now")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reminder"})
		}
		return
	}
	c.JSON(http.StatusOK, out)
}

type commentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body" binding:"required"`
}

func (s *Server) addComment(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := s.tasks.AddComment(c.Request.Context(), taskID, req.Author, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) listComments(c *gin.Context) {
	taskID, ok := s.taskID(c, "id")
	if !ok {
		return
	}
	comments, err := s.tasks.Comments(c.Request.Context(), taskID)
	if err != nil {
		s.log.Error().Err(err).Msg("list comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (s *Server) listJobs(c *gin.Context) {
	jobs, err := s.jobs.ListAll(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// cancelJob removes a job directly. Idempotent: cancelling a job that
// is already gone still returns 204.
func (s *Server) cancelJob(c *gin.Context) {
	taskID, ok := s.taskID(c, "task_id")
	if !ok {
		return
	}
	if _, err := s.engine.Cancel(c.Request.Context(), taskID); err != nil {
		s.log.Error().Err(err).Msg("cancel job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getTemplate(c *gin.Context) {
	tpl, err := s.settings.Template(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("get template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

type templateRequest struct {
	Template string `json:"template"`
}

func (s *Server) setTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.settings.SetTemplate(c.Request.Context(), req.Template); err != nil {
		s.log.Error().Err(err).Msg("set template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save template"})
		return
	}
	tpl, _ := s.settings.Template(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

func (s *Server) taskID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return uint(id), true
}

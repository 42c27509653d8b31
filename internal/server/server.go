package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"taskping/internal/repository"
	"taskping/internal/schedule"
	"taskping/internal/service"
)

// Server exposes the admin HTTP API: contacts, tasks, comments, the
// jobs inspection view and the message template.
type Server struct {
	contacts *service.ContactService
	tasks    *service.TaskService
	settings *service.SettingService
	jobs     *repository.JobRepository
	engine   *schedule.Engine
	log      zerolog.Logger
}

func New(contacts *service.ContactService, tasks *service.TaskService, settings *service.SettingService, jobs *repository.JobRepository, engine *schedule.Engine, log zerolog.Logger) *Server {
	return &Server{
		contacts: contacts,
		tasks:    tasks,
		settings: settings,
		jobs:     jobs,
		engine:   engine,
		log:      log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/contacts", s.upsertContact)
		api.GET("/contacts", s.listContacts)

		api.POST("/tasks", s.createTask)
		api.GET("/tasks", s.listTasks)
		api.GET("/tasks/:id", s.getTask)
		api.DELETE("/tasks/:id", s.deleteTask)
		api.PUT("/tasks/:id/status", s.updateTaskStatus)
		api.POST("/tasks/:id/remind", s.remindNow)
		api.GET("/tasks/:id/comments", s.listComments)
		api.POST("/tasks/:id/comments", s.addComment)

		api.GET("/jobs", s.listJobs)
		api.DELETE("/jobs/:task_id", s.cancelJob)

		api.GET("/settings/template", s.getTemplate)
		api.PUT("/settings/template", s.setTemplate)
	}

	return r
}

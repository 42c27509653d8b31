package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"taskping/internal/config"
	"taskping/internal/messaging"
	"taskping/internal/repository"
	"taskping/internal/schedule"
	"taskping/internal/server"
	"taskping/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(os.Getenv("TASKPING_LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	loc := cfg.Location()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	contactRepo := repository.NewContactRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	jobRepo := repository.NewJobRepository(db)

	settingSvc := service.NewSettingService(settingRepo)
	if err := settingSvc.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("seed settings")
	}

	limiter := messaging.NewLimiter(cfg.SendRate)
	var sender messaging.Sender
	switch cfg.Messenger {
	case config.MessengerTelegram:
		sender, err = messaging.NewTelegramSender(cfg.TelegramToken, limiter, log.With().Str("component", "telegram").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sender")
		}
	default:
		sender = messaging.NewWhatsAppClient(cfg.APIBase, cfg.APISendPath, cfg.APISession, limiter, log.With().Str("component", "whatsapp").Logger())
	}

	reminderSvc := service.NewReminderService(taskRepo, settingSvc, sender, loc, log.With().Str("component", "reminder").Logger())
	engine := schedule.NewEngine(jobRepo, reminderSvc, schedule.Options{
		Location:         loc,
		MisfireGrace:     cfg.MisfireGrace,
		GuardManualSends: cfg.SendNowGuard,
	}, log.With().Str("component", "engine").Logger())

	contactSvc := service.NewContactService(contactRepo, cfg.PhoneRegion)
	taskSvc := service.NewTaskService(taskRepo, contactRepo, engine, log.With().Str("component", "tasks").Logger())

	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleInterval(cfg.PollInterval, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), cfg.PollInterval+30*time.Second)
		defer cancel()
		engine.Tick(tickCtx)
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule engine tick")
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(contactSvc, taskSvc, settingSvc, jobRepo, engine, log.With().Str("component", "http").Logger())
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("tz", loc.String()).Str("messenger", cfg.Messenger).Msg("taskping started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	engine.Stop(shutdownCtx)
	log.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"choreplan/internal/config"
	"choreplan/internal/deferral"
	"choreplan/internal/engine"
	"choreplan/internal/handler"
	"choreplan/internal/httpserver"
	"choreplan/internal/mqhandler"
	"choreplan/internal/reminder"
	"choreplan/internal/store"
	"choreplan/pkg/db"
	"choreplan/pkg/logger"
	"choreplan/pkg/mq"
	"choreplan/pkg/outbox"
	"choreplan/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting scheduler service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Int("horizon_days", cfg.Scheduler.HorizonDays),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Stores
	templateStore := store.NewPostgresTemplateStore(dbConn, log)
	taskStore := store.NewPostgresTaskStore(dbConn, log)

	// Engine + guard
	eng := engine.New(templateStore, taskStore, log).
		WithHorizonDays(cfg.Scheduler.HorizonDays).
		WithPause(time.Duration(cfg.Scheduler.PauseBetweenTemplatesMS) * time.Millisecond)

	guard := engine.NewGuard(eng.GenerateForHorizon, log).
		WithThrottle(time.Duration(cfg.Scheduler.ThrottleSeconds) * time.Second).
		WithTimeout(time.Duration(cfg.Scheduler.PassTimeoutSeconds) * time.Second)

	// Outbox dispatcher: publishes task.created events recorded by the
	// task store.
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	go dispatcher.Start(rootCtx)

	// Reminder dispatcher
	fired := reminder.NewFiredMarker(rdb, 48*time.Hour, log)
	reminderDispatcher := reminder.NewDispatcher(taskStore, publisher, fired, log).
		WithInterval(time.Duration(cfg.Scheduler.ReminderPollSeconds) * time.Second)
	go reminderDispatcher.Start(rootCtx)

	// task.completed consumer: completing a recurring task schedules the
	// next occurrence.
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "scheduler.task.completed", mq.RoutingKeyTaskCompleted, log)
	if err != nil {
		log.Fatal("Failed to init MQ consumer", zap.Error(err))
	}
	defer consumer.Close()

	completedHandler := mqhandler.NewTaskCompletedHandler(eng, templateStore, taskStore, log)
	consumer.SetHandler(completedHandler.Handle)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Error("Consumer stopped", zap.Error(err))
		}
	}()

	// Horizon generation ticker. The guard makes the tick safe even when
	// manual triggers race it.
	go func() {
		interval := time.Duration(cfg.Scheduler.GenerationTickMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		guard.RequestHorizonGeneration()

		for {
			select {
			case <-rootCtx.Done():
				log.Info("Generation ticker stopped")
				return
			case <-ticker.C:
				guard.RequestHorizonGeneration()
			}
		}
	}()

	// HTTP server
	deferralManager := deferral.NewManager(taskStore, log)
	scheduleHandler := handler.NewScheduleHandler(eng, guard, templateStore, log)
	taskHandler := handler.NewTaskHandler(taskStore, deferralManager, publisher, log)

	router := httpserver.NewRouter(scheduleHandler, taskHandler, cfg.JWT.Secret, log, dbConn, consumer)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("scheduler service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler service gracefully...")

	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("scheduler service shutdown complete")
}

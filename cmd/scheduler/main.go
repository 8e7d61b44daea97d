package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"pressing_chatbot_backend/internal/notifications"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/internal/reminders"
	"pressing_chatbot_backend/internal/whatsapp"
	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/logger"
)

// The scheduler binary runs the daily reminder cron and its asynq worker,
// plus its own relay queue loop so notification log events reach Make even
// when the API process is down.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.GetRemindersEnabled() {
		log.Warn("reminders disabled, nothing to schedule")
		return
	}
	if !cfg.IsRedisEnabled() {
		log.Error("REDIS_URL is required to run the scheduler")
		panic("REDIS_URL is required to run the scheduler")
	}

	relayClient := relay.NewClient(cfg, log)

	queueStore, err := relay.NewFileStore(cfg.GetDataDir())
	if err != nil {
		log.Error("failed to initialize queue store", "error", err.Error())
		panic("failed to initialize queue store: " + err.Error())
	}
	queue := relay.NewQueue(queueStore, relayClient, log, relay.Options{
		TickInterval: cfg.GetQueueTickInterval(),
		BaseDelay:    cfg.GetQueueBaseDelay(),
		MaxDelay:     cfg.GetQueueMaxDelay(),
		MaxRetries:   cfg.GetQueueMaxRetries(),
	})

	sender := whatsapp.NewClient(cfg, log)
	logbook := notifications.NewLogbook(queue, log)
	service := reminders.NewService(relayClient, sender, logbook, log)

	worker, err := reminders.NewWorker(cfg, service, log)
	if err != nil {
		log.Error("failed to initialize reminder worker", "error", err.Error())
		panic("failed to initialize reminder worker: " + err.Error())
	}

	scheduler, err := reminders.NewScheduler(cfg, log)
	if err != nil {
		log.Error("failed to initialize reminder scheduler", "error", err.Error())
		panic("failed to initialize reminder scheduler: " + err.Error())
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		scheduler.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		queue.Run(groupCtx)
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("scheduler error", "error", err.Error())
		panic("scheduler error: " + err.Error())
	}

	log.Info("scheduler stopped")
}

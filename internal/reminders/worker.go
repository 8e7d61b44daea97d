package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/logger"
)

// Worker consumes reminder tasks from the asynq queue.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	service *Service
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, service *Service, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{server: server, mux: mux, service: service, log: log}
	mux.HandleFunc(TaskDailyReminder, w.handleDailyReminder)

	return w, nil
}

func (w *Worker) handleDailyReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDailyReminderPayload(task)
	if err != nil {
		return err
	}
	w.log.Info("daily reminder sweep", "triggeredAt", payload.TriggeredAt.Format(time.RFC3339))
	return w.service.SendDue(ctx)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("reminder worker stopped", "error", err.Error())
	}
}

// Scheduler registers the daily cron entry that enqueues reminder tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	spec := cfg.GetReminderCronSpec()
	if spec == "" {
		spec = "0 9 * * *"
	}

	sched := asynq.NewScheduler(opt, nil)
	task, err := NewDailyReminderTask(DailyReminderPayload{TriggeredAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(spec, task, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register reminder cron: %w", err)
	}

	return &Scheduler{scheduler: sched, log: log}, nil
}

func (s *Scheduler) Run(ctx context.Context) {
	if s == nil || s.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		s.scheduler.Shutdown()
	}()

	if err := s.scheduler.Run(); err != nil {
		s.log.Error("reminder scheduler stopped", "error", err.Error())
	}
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

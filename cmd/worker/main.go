package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/hamzaiqbal/crmconnect/internal/config"
	"github.com/hamzaiqbal/crmconnect/internal/conversation"
	"github.com/hamzaiqbal/crmconnect/internal/queue"
	"github.com/hamzaiqbal/crmconnect/internal/queue/workers"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	var forwarder conversation.Dispatcher
	if cfg.Dispatch.CollaboratorURL != "" {
		forwarder = conversation.NewForwarder(cfg.Dispatch.CollaboratorURL,
			cfg.Dispatch.CollaboratorSecret, cfg.Dispatch.Timeout)
	}

	registry := queue.NewHandlersRegistry()

	dispatchWorker := workers.NewDispatchWorker(forwarder)
	deliveryWorker := workers.NewDeliveryWorker()

	registry.Register(queue.TypeEventDispatch, asynq.HandlerFunc(dispatchWorker.ProcessTask))
	registry.Register(queue.TypeCodeDeliver, asynq.HandlerFunc(deliveryWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"ai-diary/internal/adapters/repo"
	"ai-diary/internal/infra/config"
	"ai-diary/internal/infra/db"
	applog "ai-diary/internal/infra/log"
	"ai-diary/internal/infra/metrics"
	"ai-diary/internal/infra/queue"
	"ai-diary/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewServiceLogger(cfg.AppEnv, "scheduler")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	mongoClient, mongoDB, err := db.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: нет подключения к MongoDB")
	}
	defer func() { _ = db.DisconnectMongo(mongoClient) }()

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: нет подключения к Redis")
	}
	defer redisClient.Close()

	reportQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, cfg.Queues.RabbitMQURL, cfg.Queues.Report, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь")
	}
	defer func() { _ = closeQueue() }()

	service := schedule.NewService(repo.NewMongoDiaries(mongoDB), reportQueue, logger)
	logger.Info().Dur("interval", cfg.Reports.SchedulerInterval).Msg("scheduler: запуск")
	service.Run(ctx, cfg.Reports.SchedulerInterval)
	logger.Info().Msg("scheduler: остановлен")
}

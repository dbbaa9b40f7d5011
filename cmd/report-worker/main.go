package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"ai-diary/internal/adapters/personas"
	"ai-diary/internal/adapters/repo"
	"ai-diary/internal/adapters/reporter"
	"ai-diary/internal/domain"
	"ai-diary/internal/infra/cache"
	"ai-diary/internal/infra/config"
	"ai-diary/internal/infra/db"
	applog "ai-diary/internal/infra/log"
	"ai-diary/internal/infra/metrics"
	"ai-diary/internal/infra/openai"
	"ai-diary/internal/infra/queue"
	"ai-diary/internal/usecase/report"
)

func main() {
	cfg := config.Load()
	logger := applog.NewServiceLogger(cfg.AppEnv, "report-worker")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	mongoClient, mongoDB, err := db.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("report-worker: нет подключения к MongoDB")
	}
	defer func() { _ = db.DisconnectMongo(mongoClient) }()

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("report-worker: нет подключения к Redis")
	}
	defer redisClient.Close()

	reportQueue, closeQueue, err := queue.Open(cfg.Queues.Backend, cfg.Queues.RabbitMQURL, cfg.Queues.Report, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("report-worker: не удалось инициализировать очередь")
	}
	defer func() { _ = closeQueue() }()

	catalog, err := personas.Load(cfg.OpenRouter.Structured)
	if err != nil {
		log.Fatal().Err(err).Msg("report-worker: не удалось загрузить персонажей")
	}

	var narrator domain.ReportNarrator = reporter.NewSimple()
	chatClient := openai.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Timeout,
		openai.WithAttribution(cfg.OpenRouter.SiteURL, cfg.OpenRouter.SiteName))
	if chatClient.HasKey() {
		narrator = reporter.NewLLM(chatClient, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout)
	} else {
		logger.Warn().Msg("report-worker: OPENROUTER_API_KEY не задан, тема периода строится по шаблону")
	}

	reportService := report.NewService(repo.NewMongoDiaries(mongoDB), catalog, narrator,
		cache.NewRedis(redisClient, "diary:"), cfg.Reports.CacheTTL, applog.Component(logger, "report"))

	logger.Info().Str("backend", cfg.Queues.Backend).Msg("report-worker: запуск обработки очереди")
	if err := report.NewWorker(reportQueue, reportService, logger).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("report-worker: очередь недоступна")
	}
	logger.Info().Msg("report-worker: остановлен")
}

package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ai-diary/internal/adapters/analyzer"
	"ai-diary/internal/adapters/httpapi"
	"ai-diary/internal/adapters/parser"
	"ai-diary/internal/adapters/personas"
	"ai-diary/internal/adapters/repo"
	"ai-diary/internal/adapters/reporter"
	"ai-diary/internal/adapters/sanitize"
	"ai-diary/internal/adapters/youtube"
	"ai-diary/internal/domain"
	"ai-diary/internal/infra/cache"
	"ai-diary/internal/infra/config"
	"ai-diary/internal/infra/db"
	httpinfra "ai-diary/internal/infra/http"
	applog "ai-diary/internal/infra/log"
	"ai-diary/internal/infra/metrics"
	"ai-diary/internal/infra/openai"
	"ai-diary/internal/infra/session"
	"ai-diary/internal/usecase/auth"
	"ai-diary/internal/usecase/diary"
	"ai-diary/internal/usecase/report"
)

type chatAnalyzer interface {
	domain.Analyzer
	httpapi.ChatProxy
}

func main() {
	cfg := config.Load()
	logger := applog.NewServiceLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN == "" {
		log.Fatal().Msg("api: не указан PG_DSN")
	}
	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.MigrateUp(cfg.PGDSN); err != nil {
		log.Fatal().Err(err).Msg("api: не удалось применить миграции")
	}

	mongoClient, mongoDB, err := db.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к MongoDB")
	}
	defer func() { _ = db.DisconnectMongo(mongoClient) }()

	redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к Redis")
	}
	defer redisClient.Close()

	diaries := repo.NewMongoDiaries(mongoDB)
	if err := diaries.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("api: не удалось создать индексы")
	}
	users := repo.NewPostgres(pool)

	catalog, err := personas.Load(cfg.OpenRouter.Structured)
	if err != nil {
		log.Fatal().Err(err).Msg("api: не удалось загрузить персонажей")
	}
	replyParser := parser.New(logger)
	sanitizer := sanitize.NewPlain()

	chatClient := openai.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Timeout,
		openai.WithAttribution(cfg.OpenRouter.SiteURL, cfg.OpenRouter.SiteName))
	var (
		analyzerAdapter chatAnalyzer
		narrator        domain.ReportNarrator
	)
	switch {
	case chatClient.HasKey():
		analyzerAdapter = analyzer.NewOpenAI(chatClient, catalog, replyParser, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout, cfg.OpenRouter.Structured)
		narrator = reporter.NewLLM(chatClient, cfg.OpenRouter.Model, cfg.OpenRouter.Timeout)
	case cfg.IsDev():
		logger.Warn().Msg("api: OPENROUTER_API_KEY не задан, используется заглушка анализатора")
		analyzerAdapter = analyzer.NewStub(catalog, replyParser)
		narrator = reporter.NewSimple()
	default:
		log.Fatal().Msg("api: не указан ключ OpenRouter (OPENROUTER_API_KEY)")
	}

	videos := youtube.NewClient(cfg.YouTube.APIKey, cfg.YouTube.BaseURL, 15*time.Second, sanitizer)
	reportCache := cache.NewRedis(redisClient, "diary:")

	reportService := report.NewService(diaries, catalog, narrator, reportCache, cfg.Reports.CacheTTL, applog.Component(logger, "report"))
	diaryService := diary.NewService(diaries, analyzerAdapter, videos, catalog, sanitizer, applog.Component(logger, "diary"),
		diary.WithInvalidator(reportService), diary.WithMaxVideos(cfg.YouTube.MaxResults))
	authService := auth.NewService(users, session.NewRedisStore(redisClient, session.Duration), applog.Component(logger, "auth"))

	srv := httpinfra.NewServer(logger, cfg.HTTP.CORSOrigins)
	httpapi.New(httpapi.Deps{
		Auth:      authService,
		Diaries:   diaryService,
		Reports:   reportService,
		Chat:      analyzerAdapter,
		Videos:    videos,
		Personas:  catalog,
		Limiter:   httpinfra.NewRateLimiter(cfg.HTTP.AnalyzePerMinute, cfg.HTTP.AnalyzeBurst, applog.Component(logger, "ratelimit")),
		MaxVideos: cfg.YouTube.MaxResults,
	}, applog.Component(logger, "httpapi")).Mount(srv.Router)

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)
	go serve(srv, ":"+strconv.Itoa(cfg.Port), logger)

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func serve(srv *httpinfra.Server, addr string, logger zerolog.Logger) {
	if err := srv.Start(addr); err != nil {
		logger.Error().Err(err).Msg("api: сервер остановлен")
	}
}

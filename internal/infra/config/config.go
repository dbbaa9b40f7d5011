package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	Mongo struct {
		URI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
		Database string `envconfig:"MONGO_DB" default:"ai_diary"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"redis"`
		RabbitMQURL string `envconfig:"RABBITMQ_URL"`
		Report      string `envconfig:"REPORT_QUEUE_KEY" default:"report_jobs"`
	} `envconfig:""`

	OpenRouter struct {
		APIKey     string        `envconfig:"OPENROUTER_API_KEY"`
		BaseURL    string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
		Model      string        `envconfig:"OPENROUTER_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
		Timeout    time.Duration `envconfig:"OPENROUTER_TIMEOUT" default:"120s"`
		Structured bool          `envconfig:"ANALYSIS_STRUCTURED" default:"false"`
		SiteURL    string        `envconfig:"SITE_URL"`
		SiteName   string        `envconfig:"SITE_NAME" default:"AI Diary"`
	} `envconfig:""`

	YouTube struct {
		APIKey     string `envconfig:"YOUTUBE_API_KEY"`
		BaseURL    string `envconfig:"YOUTUBE_BASE_URL" default:"https://www.googleapis.com/youtube/v3"`
		MaxResults int    `envconfig:"YOUTUBE_MAX_RESULTS" default:"3"`
	} `envconfig:""`

	Reports struct {
		CacheTTL          time.Duration `envconfig:"REPORT_CACHE_TTL" default:"72h"`
		SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"168h"`
	} `envconfig:""`

	HTTP struct {
		CORSOrigins      []string `envconfig:"CORS_ORIGINS" default:"*"`
		AnalyzePerMinute int      `envconfig:"RATE_ANALYZE_PER_MIN" default:"6"`
		AnalyzeBurst     int      `envconfig:"RATE_ANALYZE_BURST" default:"3"`
	} `envconfig:""`
}

// legacyAliases сопоставляет старые имена переменных окружения текущим.
var legacyAliases = map[string]string{
	"DEEPSEEK_KEY": "OPENROUTER_API_KEY",
	"YOUTUBE_KEY":  "YOUTUBE_API_KEY",
}

// Load загружает .env (если есть) и конфиг из окружения.
func Load() AppConfig {
	cfg, err := LoadFrom(".env")
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// LoadFrom читает указанные .env файлы и окружение. Отсутствующие файлы пропускаются.
func LoadFrom(envFiles ...string) (AppConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, err
		}
	}
	for legacy, current := range legacyAliases {
		if _, ok := os.LookupEnv(current); ok {
			continue
		}
		if v, ok := os.LookupEnv(legacy); ok {
			_ = os.Setenv(current, v)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.OpenRouter.APIKey = strings.TrimSpace(cfg.OpenRouter.APIKey)
	cfg.YouTube.APIKey = strings.TrimSpace(cfg.YouTube.APIKey)
	cfg.Queues.Backend = strings.ToLower(strings.TrimSpace(cfg.Queues.Backend))
	return cfg, nil
}

// IsDev сообщает, запущен ли сервис в режиме разработки.
func (c AppConfig) IsDev() bool { return c.AppEnv == "dev" }

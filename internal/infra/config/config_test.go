package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("QUEUE_BACKEND", " RabbitMQ ")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Port != 8080 || cfg.Reports.CacheTTL != 72*time.Hour || cfg.YouTube.MaxResults != 3 {
		t.Fatalf("неверные значения по умолчанию: %+v", cfg)
	}
	if cfg.OpenRouter.Model != "deepseek/deepseek-chat-v3-0324:free" {
		t.Fatalf("неверная модель: %s", cfg.OpenRouter.Model)
	}
	if cfg.Queues.Backend != "rabbitmq" {
		t.Fatalf("бэкенд очереди не нормализован: %q", cfg.Queues.Backend)
	}
	if cfg.HTTP.AnalyzePerMinute != 6 || cfg.HTTP.AnalyzeBurst != 3 {
		t.Fatalf("неверные лимиты: %+v", cfg.HTTP)
	}
}

func TestLoadFromEnvFileAndAliases(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("YOUTUBE_KEY=\"  yt-key \"\nREPORT_CACHE_TTL=1h\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("YOUTUBE_API_KEY", "")
	os.Unsetenv("YOUTUBE_API_KEY")
	t.Setenv("DEEPSEEK_KEY", " ds-key\n")
	t.Setenv("OPENROUTER_API_KEY", "")
	os.Unsetenv("OPENROUTER_API_KEY")
	for _, key := range []string{"YOUTUBE_KEY", "REPORT_CACHE_TTL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadFrom(envFile)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.OpenRouter.APIKey != "ds-key" {
		t.Fatalf("алиас DEEPSEEK_KEY не применён: %q", cfg.OpenRouter.APIKey)
	}
	if cfg.YouTube.APIKey != "yt-key" {
		t.Fatalf("алиас YOUTUBE_KEY не применён: %q", cfg.YouTube.APIKey)
	}
	if cfg.Reports.CacheTTL != time.Hour {
		t.Fatalf("значение из .env не прочитано: %v", cfg.Reports.CacheTTL)
	}
}

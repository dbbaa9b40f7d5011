// Package report строит эмоциональные отчёты за неделю или месяц.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/cache"
	"ai-diary/internal/infra/metrics"
)

// DefaultCacheTTL задаёт срок хранения готового отчёта.
const DefaultCacheTTL = 72 * time.Hour

// Service реализует domain.ReportService.
type Service struct {
	diaries  domain.DiaryRepo
	personas domain.PersonaCatalog
	narrator domain.ReportNarrator
	cache    domain.Cache
	ttl      time.Duration
	group    singleflight.Group
	log      zerolog.Logger
	now      func() time.Time
}

var _ domain.ReportService = (*Service)(nil)

// NewService создаёт сервис отчётов. cache может быть nil.
func NewService(diaries domain.DiaryRepo, personas domain.PersonaCatalog, narrator domain.ReportNarrator, c domain.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{diaries: diaries, personas: personas, narrator: narrator, cache: c, ttl: ttl, log: logger, now: time.Now}
}

// Generate возвращает отчёт из кэша или строит его заново.
func (s *Service) Generate(ctx context.Context, userID string, period domain.ReportPeriod) (domain.Report, error) {
	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return domain.Report{}, err
	}
	key := s.key(ctx, userID, period)
	if s.cache != nil {
		var cached domain.Report
		hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("чтение кэша отчёта")
		}
		if hit {
			metrics.ObserveReport(string(period), "cache")
			return cached, nil
		}
	}
	return s.build(ctx, userID, period, key)
}

// Refresh строит отчёт заново и перезаписывает кэш.
func (s *Service) Refresh(ctx context.Context, userID string, period domain.ReportPeriod) (domain.Report, error) {
	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return domain.Report{}, err
	}
	return s.build(ctx, userID, period, s.key(ctx, userID, period))
}

// Invalidate удаляет закэшированные отчёты пользователя и меняет поколение его
// ключей. Отчёт, который строился до сброса, сохраняется под старым поколением
// и больше не читается.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	gen := s.generation(ctx, userID)
	if err := s.cache.Set(ctx, generationKey(userID), []byte(uuid.NewString()), 0); err != nil {
		return fmt.Errorf("смена поколения отчётов: %w", err)
	}
	if err := s.cache.Delete(ctx, cacheKey(userID, domain.PeriodWeekly, gen), cacheKey(userID, domain.PeriodMonthly, gen)); err != nil {
		return fmt.Errorf("сброс кэша отчётов: %w", err)
	}
	return nil
}

// key читает текущее поколение до построения отчёта.
func (s *Service) key(ctx context.Context, userID string, period domain.ReportPeriod) string {
	return cacheKey(userID, period, s.generation(ctx, userID))
}

func (s *Service) generation(ctx context.Context, userID string) string {
	if s.cache == nil {
		return ""
	}
	b, err := s.cache.Get(ctx, generationKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn().Err(err).Str("user", userID).Msg("чтение поколения отчётов")
		}
		return ""
	}
	return string(b)
}

func (s *Service) build(ctx context.Context, userID string, period domain.ReportPeriod, key string) (domain.Report, error) {
	// Отчёт строится один раз на ключ, даже если вызывающий отменил свой запрос.
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.compose(context.WithoutCancel(ctx), userID, period, key)
	})
	if err != nil {
		return domain.Report{}, err
	}
	return v.(domain.Report), nil
}

func (s *Service) compose(ctx context.Context, userID string, period domain.ReportPeriod, key string) (domain.Report, error) {
	started := time.Now()
	now := s.now().UTC()
	start, end := period.Window(now)

	entries, err := s.diaries.ListEntriesBetween(ctx, userID, start, end)
	if err != nil {
		return domain.Report{}, fmt.Errorf("записи за период: %w", err)
	}
	report, digest, err := Aggregate(entries, s.personas, period, start, end)
	if err != nil {
		return domain.Report{}, err
	}
	if digest != nil {
		s.narrate(ctx, &report, *digest)
	}
	report.GeneratedAt = now

	metrics.ReportBuildSeconds.Observe(time.Since(started).Seconds())
	metrics.ObserveReport(string(period), "built")

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, report, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("user", userID).Msg("не удалось сохранить отчёт в кэш")
		}
	}
	s.log.Info().Str("user", userID).Str("period", string(period)).Int("entries", report.TotalEntries).Msg("отчёт построен")
	return report, nil
}

func (s *Service) narrate(ctx context.Context, report *domain.Report, digest domain.ReportDigest) {
	if s.narrator == nil {
		return
	}
	narrative, err := s.narrator.Narrate(ctx, digest)
	if err != nil {
		s.log.Error().Err(err).Str("persona", digest.Persona.ID).Msg("не удалось получить тему периода")
		report.JourneyTheme = FailedJourneyTheme
		report.LighthouseMessage = FailedLighthouseMessage
		return
	}
	if narrative.JourneyTheme != "" {
		report.JourneyTheme = narrative.JourneyTheme
	}
	if narrative.LighthouseMessage != "" {
		report.LighthouseMessage = narrative.LighthouseMessage
	}
}

func cacheKey(userID string, period domain.ReportPeriod, gen string) string {
	key := "report:" + userID + ":" + string(period)
	if gen != "" {
		key += ":" + gen
	}
	return key
}

func generationKey(userID string) string {
	return "report:gen:" + userID
}

// IsEmptyPeriod сообщает, что за период нечего показывать.
func IsEmptyPeriod(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

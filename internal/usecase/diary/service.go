// Package diary реализует работу с записями дневника: анализ, просмотр, правку и удаление.
package diary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
)

const (
	// DefaultPageSize используется, если размер страницы не передан.
	DefaultPageSize = 10
	// MaxPageSize ограничивает размер страницы.
	MaxPageSize = 50
)

// Invalidator сбрасывает производные данные пользователя после изменения записей.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Service реализует операции над записями дневника.
type Service struct {
	repo        domain.DiaryRepo
	analyzer    domain.Analyzer
	videos      domain.VideoSearcher
	personas    domain.PersonaCatalog
	sanitizer   domain.Sanitizer
	invalidator Invalidator
	maxVideos   int
	log         zerolog.Logger
	now         func() time.Time
}

// Option настраивает сервис.
type Option func(*Service)

// WithInvalidator подключает сброс кэша отчётов.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithMaxVideos задаёт количество видеорекомендаций.
func WithMaxVideos(n int) Option {
	return func(s *Service) { s.maxVideos = n }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис записей.
func NewService(repo domain.DiaryRepo, analyzer domain.Analyzer, videos domain.VideoSearcher, personas domain.PersonaCatalog, sanitizer domain.Sanitizer, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		analyzer:  analyzer,
		videos:    videos,
		personas:  personas,
		sanitizer: sanitizer,
		log:       logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze анализирует текст, подбирает видео и сохраняет запись.
func (s *Service) Analyze(ctx context.Context, userID, text, personaID string) (domain.DiaryEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.DiaryEntry{}, domain.Invalid("Diary content cannot be empty.")
	}
	if err := s.checkPersona(personaID, "Please choose an AI Persona."); err != nil {
		return domain.DiaryEntry{}, err
	}

	analysis, err := s.analyzer.Analyze(ctx, text, personaID)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("анализ записи: %w", err)
	}

	entry := domain.DiaryEntry{
		UserID:                 userID,
		UserText:               text,
		AnalysisResult:         s.clean(analysis.AnalysisText),
		MoodScore:              analysis.MoodScore,
		Keywords:               nonEmpty(analysis.Keywords),
		PersonaID:              personaID,
		RecommendedCategory:    strings.TrimSpace(analysis.RecommendedCategory),
		YoutubeRecommendations: s.recommend(ctx, analysis),
		CreatedAt:              s.now().UTC(),
	}
	saved, err := s.repo.CreateEntry(ctx, entry)
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("сохранение записи: %w", err)
	}
	s.invalidate(ctx, userID)
	s.log.Info().Str("user", userID).Str("entry", saved.ID).Str("persona", personaID).Msg("запись сохранена")
	return saved, nil
}

// List возвращает страницу записей, новые сначала.
func (s *Service) List(ctx context.Context, userID, cursor string, limit int) (domain.DiaryPage, error) {
	limit = ClampLimit(limit)
	// Запрашиваем на одну запись больше, чтобы понять, есть ли следующая страница.
	entries, err := s.repo.ListEntries(ctx, userID, strings.TrimSpace(cursor), limit+1)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DiaryPage{}, domain.Invalid("Invalid cursor.")
	}
	if err != nil {
		return domain.DiaryPage{}, fmt.Errorf("список записей: %w", err)
	}
	page := domain.DiaryPage{Diaries: entries}
	if len(entries) > limit {
		page.Diaries = entries[:limit]
		page.NextCursor = page.Diaries[limit-1].ID
	}
	if page.Diaries == nil {
		page.Diaries = []domain.DiaryEntry{}
	}
	return page, nil
}

// Get возвращает запись владельца.
func (s *Service) Get(ctx context.Context, userID, id string) (domain.DiaryEntry, error) {
	if strings.TrimSpace(id) == "" {
		return domain.DiaryEntry{}, domain.NotFound("Diary not found.")
	}
	entry, err := s.repo.GetEntry(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DiaryEntry{}, domain.NotFound("Diary not found.")
	}
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("получение записи: %w", err)
	}
	return entry, nil
}

// Preview повторно анализирует изменённый текст записи, ничего не сохраняя.
func (s *Service) Preview(ctx context.Context, userID, id, text, personaID string) (domain.Analysis, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Analysis{}, domain.Invalid("Please select a diary to update.")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Analysis{}, domain.Invalid("Diary content cannot be empty.")
	}
	entry, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Analysis{}, err
	}
	if text == strings.TrimSpace(entry.UserText) {
		return domain.Analysis{}, domain.Invalid("Content has not been changed.")
	}
	if err := s.checkPersona(personaID, "Please choose an AI Persona for re-analysis."); err != nil {
		return domain.Analysis{}, err
	}

	analysis, err := s.analyzer.Analyze(ctx, text, personaID)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("повторный анализ: %w", err)
	}
	analysis.AnalysisText = s.clean(analysis.AnalysisText)
	analysis.Keywords = nonEmpty(analysis.Keywords)
	return analysis, nil
}

// Update применяет подтверждённые изменения к записи.
func (s *Service) Update(ctx context.Context, userID, id string, patch domain.DiaryPatch) (domain.DiaryEntry, error) {
	if strings.TrimSpace(id) == "" {
		return domain.DiaryEntry{}, domain.Invalid("Please select a diary to update.")
	}
	if patch.Empty() {
		return domain.DiaryEntry{}, domain.Invalid("Nothing to update.")
	}
	if patch.UserText != nil {
		text := strings.TrimSpace(*patch.UserText)
		if text == "" {
			return domain.DiaryEntry{}, domain.Invalid("Diary content cannot be empty.")
		}
		patch.UserText = &text
	}
	if patch.MoodScore != nil && (*patch.MoodScore < 0 || *patch.MoodScore > 100) {
		return domain.DiaryEntry{}, domain.Invalid("Mood score must be between 0 and 100.")
	}
	if patch.PersonaID != nil {
		if err := s.checkPersona(*patch.PersonaID, "Please choose an AI Persona for re-analysis."); err != nil {
			return domain.DiaryEntry{}, err
		}
	}
	if patch.AnalysisResult != nil {
		cleaned := s.clean(*patch.AnalysisResult)
		patch.AnalysisResult = &cleaned
	}
	if patch.Keywords != nil {
		patch.Keywords = nonEmpty(patch.Keywords)
	}
	patch.UpdatedAt = s.now().UTC()

	entry, err := s.repo.UpdateEntry(ctx, userID, id, patch)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DiaryEntry{}, domain.NotFound("Diary not found.")
	}
	if err != nil {
		return domain.DiaryEntry{}, fmt.Errorf("обновление записи: %w", err)
	}
	s.invalidate(ctx, userID)
	return entry, nil
}

// Delete удаляет запись владельца.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NotFound("Diary not found.")
	}
	err := s.repo.DeleteEntry(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("Diary not found.")
	}
	if err != nil {
		return fmt.Errorf("удаление записи: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// ClampLimit приводит размер страницы к диапазону [1, MaxPageSize].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

func (s *Service) checkPersona(personaID, missing string) error {
	if strings.TrimSpace(personaID) == "" {
		return domain.Invalid(missing)
	}
	if _, ok := s.personas.Get(personaID); !ok {
		return domain.Invalid(fmt.Sprintf("Invalid persona selected: %s", personaID))
	}
	return nil
}

// recommend ищет видео по ключевым словам анализа. Ошибка поиска не мешает сохранению записи.
func (s *Service) recommend(ctx context.Context, analysis domain.Analysis) []domain.VideoSummary {
	query := analysis.VideoQuery()
	if query == "" || s.videos == nil {
		return []domain.VideoSummary{}
	}
	videos, err := s.videos.SearchVideos(ctx, query, s.maxVideos)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("поиск видео не удался")
		return []domain.VideoSummary{}
	}
	if videos == nil {
		return []domain.VideoSummary{}
	}
	return videos
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user", userID).Msg("не удалось сбросить кэш отчётов")
	}
}

func (s *Service) clean(text string) string {
	if s.sanitizer == nil {
		return strings.TrimSpace(text)
	}
	return s.sanitizer.Text(text)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Package schedule ставит плановые задачи на прогрев отчётов.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
)

// Service выбирает активных пользователей и ставит им задачи на отчёт.
type Service struct {
	diaries domain.DiaryRepo
	queue   domain.ReportQueue
	log     zerolog.Logger
	now     func() time.Time
}

// NewService создаёт планировщик.
func NewService(diaries domain.DiaryRepo, queue domain.ReportQueue, logger zerolog.Logger) *Service {
	return &Service{diaries: diaries, queue: queue, log: logger, now: time.Now}
}

// EnqueueWeekly ставит недельный отчёт каждому, кто писал за последние семь дней.
// Возвращает количество поставленных задач.
func (s *Service) EnqueueWeekly(ctx context.Context) (int, error) {
	now := s.now().UTC()
	since, _ := domain.PeriodWeekly.Window(now)
	users, err := s.diaries.ListActiveUsers(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("активные пользователи: %w", err)
	}
	enqueued := 0
	for _, userID := range users {
		job := domain.ReportJob{
			ID:          uuid.NewString(),
			UserID:      userID,
			Period:      domain.PeriodWeekly,
			RequestedAt: now,
			Cause:       domain.ReportCauseScheduled,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.log.Error().Err(err).Str("user", userID).Msg("scheduler: не удалось поставить задачу")
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// Run вызывает EnqueueWeekly с интервалом interval до отмены ctx.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.EnqueueWeekly(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("scheduler: ошибка выборки пользователей")
				continue
			}
			s.log.Info().Int("jobs", n).Msg("scheduler: задачи поставлены")
		}
	}
}

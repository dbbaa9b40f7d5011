package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

// Refresher перестраивает отчёт и обновляет кэш.
type Refresher interface {
	Refresh(ctx context.Context, userID string, period domain.ReportPeriod) (domain.Report, error)
}

// Worker обрабатывает задачи прогрева отчётов по одной.
type Worker struct {
	queue   domain.ReportQueue
	reports Refresher
	log     zerolog.Logger
}

// NewWorker создаёт обработчик очереди.
func NewWorker(queue domain.ReportQueue, reports Refresher, logger zerolog.Logger) *Worker {
	return &Worker{queue: queue, reports: reports, log: logger}
}

// Run читает очередь до отмены ctx. Ошибка возвращается, только если очередь
// закрылась и больше не отдаёт задачи.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrQueueClosed) {
				return err
			}
			w.log.Error().Err(err).Msg("report-worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}
		ok := w.Handle(ctx, job)
		if err := ack(ok); err != nil {
			w.log.Error().Err(err).Str("job_id", job.ID).Msg("report-worker: не удалось подтвердить задачу")
		}
	}
}

// Handle строит отчёт по задаче. false означает, что задачу нужно отклонить.
func (w *Worker) Handle(ctx context.Context, job domain.ReportJob) bool {
	jobLog := w.log.With().
		Str("job_id", job.ID).
		Str("user", job.UserID).
		Str("period", string(job.Period)).
		Str("cause", string(job.Cause)).
		Logger()

	if job.UserID == "" {
		jobLog.Error().Msg("report-worker: задача без пользователя, пропускаем")
		metrics.ReportJobsTotal.WithLabelValues("skipped").Inc()
		return true
	}
	report, err := w.reports.Refresh(ctx, job.UserID, job.Period)
	switch {
	case err == nil:
		jobLog.Info().Int("entries", report.TotalEntries).Msg("report-worker: отчёт построен")
		metrics.ReportJobsTotal.WithLabelValues("done").Inc()
		return true
	case IsEmptyPeriod(err):
		jobLog.Info().Err(err).Msg("report-worker: за период нет данных")
		metrics.ReportJobsTotal.WithLabelValues("empty").Inc()
		return true
	default:
		jobLog.Error().Err(err).Msg("report-worker: не удалось построить отчёт")
		metrics.ReportJobsTotal.WithLabelValues("failed").Inc()
		return false
	}
}

package domain

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed означает, что очередь больше не отдаёт задачи и переподключиться не удалось.
var ErrQueueClosed = errors.New("report queue closed")

// ReportJobCause описывает источник запроса на отчёт.
type ReportJobCause string

const (
	// ReportCauseManual помечает отчёт, запрошенный вручную.
	ReportCauseManual ReportJobCause = "manual"
	// ReportCauseScheduled помечает отчёт, запланированный по расписанию.
	ReportCauseScheduled ReportJobCause = "scheduled"
)

// ReportJob содержит задачу на прогрев отчёта.
type ReportJob struct {
	ID          string         `json:"job_id,omitempty"`
	UserID      string         `json:"user_id"`
	Period      ReportPeriod   `json:"period"`
	RequestedAt time.Time      `json:"requested_at"`
	Cause       ReportJobCause `json:"cause"`
}

// ReportQueue описывает очередь задач на построение отчётов.
type ReportQueue interface {
	Enqueue(ctx context.Context, job ReportJob) error
	Receive(ctx context.Context) (ReportJob, ReportAckFunc, error)
}

// ReportAckFunc подтверждает обработку или отклоняет задачу.
type ReportAckFunc func(success bool) error

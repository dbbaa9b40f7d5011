package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-diary/internal/domain"
)

func TestMemoryRoundTrip(t *testing.T) {
	q := NewMemory(2)
	ctx := context.Background()
	job := domain.ReportJob{ID: "1", UserID: "u", Period: domain.PeriodWeekly, Cause: domain.ReportCauseScheduled}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, ack, err := q.Receive(ctx)
	if err != nil || got != job {
		t.Fatalf("получили %+v, %v", got, err)
	}
	if err := ack(true); err != nil {
		t.Fatalf("ack: %v", err)
	}
}

func TestMemoryReceiveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, _, err := NewMemory(1).Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ожидали DeadlineExceeded, получили %v", err)
	}
}

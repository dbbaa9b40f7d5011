package queue

import (
	"context"

	"ai-diary/internal/domain"
)

// Memory реализует очередь в памяти процесса для тестов и локального запуска.
type Memory struct {
	jobs chan domain.ReportJob
}

var _ domain.ReportQueue = (*Memory)(nil)

// NewMemory создаёт очередь с буфером size.
func NewMemory(size int) *Memory {
	return &Memory{jobs: make(chan domain.ReportJob, size)}
}

// Enqueue кладёт задачу в буфер.
func (m *Memory) Enqueue(ctx context.Context, job domain.ReportJob) error {
	select {
	case m.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive забирает задачу из буфера.
func (m *Memory) Receive(ctx context.Context) (domain.ReportJob, domain.ReportAckFunc, error) {
	select {
	case job := <-m.jobs:
		return job, func(bool) error { return nil }, nil
	case <-ctx.Done():
		return domain.ReportJob{}, nil, ctx.Err()
	}
}

package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"ai-diary/internal/domain"
)

// Backend-и очереди отчётов.
const (
	BackendRedis    = "redis"
	BackendRabbitMQ = "rabbitmq"
	BackendMemory   = "memory"
)

// Open выбирает реализацию очереди. Возвращаемая функция освобождает ресурсы.
func Open(backend, rabbitURL, key string, client redis.Cmdable) (domain.ReportQueue, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case BackendRabbitMQ:
		if rabbitURL == "" {
			return nil, nil, fmt.Errorf("queue: не указан адрес RabbitMQ (RABBITMQ_URL)")
		}
		q, err := NewRabbitReportQueue(rabbitURL, key)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	case BackendRedis, "":
		if client == nil {
			return nil, nil, fmt.Errorf("queue: для backend redis нужен клиент Redis")
		}
		return NewRedisReportQueue(client, key), noop, nil
	case BackendMemory:
		return NewMemory(1024), noop, nil
	default:
		return nil, nil, fmt.Errorf("queue: неизвестный backend %q", backend)
	}
}

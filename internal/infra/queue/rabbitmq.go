package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ai-diary/internal/domain"
	"ai-diary/internal/infra/metrics"
)

// RabbitReportQueue реализует очередь задач через AMQP.
type RabbitReportQueue struct {
	url   string
	queue string

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
}

var _ domain.ReportQueue = (*RabbitReportQueue)(nil)

// NewRabbitReportQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitReportQueue(amqpURL, queue string) (*RabbitReportQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, ch, err := dialRabbit(amqpURL, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitReportQueue{url: amqpURL, queue: queue, conn: conn, ch: ch}, nil
}

func dialRabbit(amqpURL, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}
	return conn, ch, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitReportQueue) Enqueue(ctx context.Context, job domain.ReportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	q.mu.Lock()
	ch := q.ch
	q.mu.Unlock()

	start := time.Now()
	err = ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive ждёт следующую задачу. Подтверждение с success=false отклоняет
// сообщение без повторной постановки. Если брокер закрыл канал доставки,
// очередь один раз переподключается; при неудаче возвращается domain.ErrQueueClosed.
func (q *RabbitReportQueue) Receive(ctx context.Context) (domain.ReportJob, domain.ReportAckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.ReportJob{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.ReportJob{}, nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				if deliveries, err = q.reconnect(); err != nil {
					return domain.ReportJob{}, nil, fmt.Errorf("rabbitmq: %w: %w", domain.ErrQueueClosed, err)
				}
				continue
			}
			var job domain.ReportJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				_ = d.Nack(false, false)
				return domain.ReportJob{}, nil, fmt.Errorf("decode job: %w", err)
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, false)
			}
			return job, ack, nil
		}
	}
}

func (q *RabbitReportQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

func (q *RabbitReportQueue) reconnect() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	_ = q.conn.Close()
	conn, ch, err := dialRabbit(q.url, q.queue)
	if err != nil {
		q.mu.Unlock()
		return nil, err
	}
	q.conn, q.ch, q.deliveries = conn, ch, nil
	q.mu.Unlock()
	return q.consume()
}

// Close закрывает канал и соединение.
func (q *RabbitReportQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return q.conn.Close()
}

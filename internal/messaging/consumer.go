package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// JobRunner выполняет задачу генерации.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
}

// JobConsumer читает очередь генерации и запускает задачи.
type JobConsumer struct {
	conn        *amqp.Connection
	queue       string
	concurrency int
	runner      JobRunner
	jobCtx      context.Context
	abort       context.CancelFunc
	logger      *zap.Logger
}

// NewJobConsumer создает консьюмер. concurrency задает prefetch и число
// одновременно выполняемых задач.
func NewJobConsumer(conn *amqp.Connection, queue string, concurrency int, runner JobRunner, logger *zap.Logger) *JobConsumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	jobCtx, abort := context.WithCancel(context.Background())
	return &JobConsumer{
		conn:        conn,
		queue:       queue,
		concurrency: concurrency,
		runner:      runner,
		jobCtx:      jobCtx,
		abort:       abort,
		logger:      logger.Named("JobConsumer"),
	}
}

// Abort отменяет контекст выполняющихся задач. Задачи при этом переводятся в failed.
func (c *JobConsumer) Abort() {
	c.abort()
}

// Run блокируется до отмены ctx или закрытия канала сообщений.
// Отмена ctx прекращает прием сообщений, но не прерывает уже начатые задачи:
// Run дожидается их завершения. Прервать их можно через Abort.
func (c *JobConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: не удалось открыть канал: %w", err)
	}
	defer ch.Close()

	if err := DeclareJobQueue(ch, c.queue); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queue,
		"adventure-worker", // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось зарегистрировать консьюмера: %w", err)
	}
	c.logger.Info("Consumer started", zap.String("queue", c.queue), zap.Int("concurrency", c.concurrency))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping")
			if err := ch.Cancel("adventure-worker", false); err != nil {
				c.logger.Warn("Ошибка отмены подписки", zap.Error(err))
			}
			return nil
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("Канал сообщений RabbitMQ закрыт")
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				continue
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handleDelivery(c.jobCtx, d)
			}(d)
		}
	}
}

// handleDelivery подтверждает сообщение после выполнения задачи.
// Нечитаемые сообщения и ошибки хранилища уходят в DLQ.
func (c *JobConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	jobID, err := decodeJobMessage(d.Body)
	if err != nil {
		c.logger.Error("Некорректное сообщение задачи, отправляем в DLQ",
			zap.Uint64("delivery_tag", d.DeliveryTag),
			zap.ByteString("body", d.Body),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	log := c.logger.With(zap.String("job_id", jobID.String()), zap.Bool("redelivered", d.Redelivered))
	if err := c.runner.RunJob(ctx, jobID); err != nil {
		log.Error("Ошибка выполнения задачи, отправляем в DLQ", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		log.Warn("Не удалось подтвердить сообщение", zap.Error(err))
	}
}

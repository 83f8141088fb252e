package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishAttempts   = 3
	publishRetryDelay = 200 * time.Millisecond
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// JobPublisher отправляет id задач в очередь генерации.
type JobPublisher struct {
	channel amqpPublisher
	closer  func() error
	queue   string
	logger  *zap.Logger
}

// NewJobPublisher открывает канал и объявляет очередь задач.
func NewJobPublisher(conn *amqp.Connection, queue string, logger *zap.Logger) (*JobPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("job publisher: не удалось открыть канал: %w", err)
	}
	if err := DeclareJobQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("job publisher: %w", err)
	}
	p := newJobPublisher(ch, queue, logger)
	p.closer = ch.Close
	p.logger.Info("Очередь задач объявлена", zap.String("queue", queue))
	return p, nil
}

func newJobPublisher(ch amqpPublisher, queue string, logger *zap.Logger) *JobPublisher {
	return &JobPublisher{
		channel: ch,
		closer:  func() error { return nil },
		queue:   queue,
		logger:  logger.Named("JobPublisher"),
	}
}

// Dispatch публикует задачу. До 3 попыток, затем ошибка.
func (p *JobPublisher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	body, err := encodeJobMessage(jobID)
	if err != nil {
		return fmt.Errorf("job publisher: ошибка сериализации: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    jobID.String(),
		Timestamp:    time.Now(),
		AppId:        "adventure-server",
		Body:         body,
	}

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",      // exchange (default)
			p.queue, // routing key
			false,   // mandatory
			false,   // immediate
			msg,
		)
		if err == nil {
			p.logger.Debug("Задача опубликована", zap.String("job_id", jobID.String()), zap.Int("attempt", attempt))
			return nil
		}
		p.logger.Warn("Ошибка публикации задачи",
			zap.String("job_id", jobID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == publishAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("job publisher: %w", ctx.Err())
		case <-time.After(publishRetryDelay * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("job publisher: не удалось опубликовать задачу %s: %w", jobID, err)
}

// Close закрывает канал.
func (p *JobPublisher) Close() error {
	return p.closer()
}

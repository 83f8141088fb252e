package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dlqRoutingKey = "dlq"

// DeadLetterExchange имя DLX для очереди задач.
func DeadLetterExchange(queue string) string { return queue + "_dlx" }

// DeadLetterQueue имя DLQ для очереди задач.
func DeadLetterQueue(queue string) string { return queue + "_dlq" }

// DeclareJobQueue объявляет очередь задач вместе с DLX и DLQ.
// Паблишер и консьюмер вызывают ее с одинаковыми параметрами.
func DeclareJobQueue(ch *amqp.Channel, queue string) error {
	dlx := DeadLetterExchange(queue)
	dlq := DeadLetterQueue(queue)

	if err := ch.ExchangeDeclare(
		dlx,      // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("не удалось объявить DLX '%s': %w", dlx, err)
	}

	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("не удалось объявить DLQ '%s': %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlqRoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("не удалось связать DLQ '%s' с DLX '%s': %w", dlq, dlx, err)
	}

	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	); err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", queue, err)
	}
	return nil
}

// Dial подключается к RabbitMQ с повторными попытками.
func Dial(ctx context.Context, url string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			return conn, nil
		}
		lastErr = err
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_in", retryDelay),
			zap.Error(err))
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, lastErr)
}

package provider

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// permanentError ошибка, повтор которой бессмысленен (неверный ключ, плохой запрос).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// Retrying повторяет вызов провайдера с экспоненциальной задержкой и джиттером.
type Retrying struct {
	inner       Provider
	model       string
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetrying оборачивает провайдера повторами. maxAttempts < 1 означает одну попытку.
func NewRetrying(inner Provider, model string, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrying{
		inner:       inner,
		model:       model,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger.Named("ProviderRetry"),
		sleep:       sleepCtx,
	}
}

func (r *Retrying) Generate(ctx context.Context, theme string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		start := time.Now()
		text, err := r.inner.Generate(ctx, theme)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("AI ответил после повтора", zap.Int("attempt", attempt), zap.Duration("duration", time.Since(start)))
			}
			return text, nil
		}
		lastErr = err
		r.logger.Warn("Ошибка вызова AI",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))

		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil || attempt == r.maxAttempts {
			break
		}

		retryAttemptsTotal.WithLabelValues(r.model).Inc()
		if err := r.sleep(ctx, backoff(r.baseDelay, attempt)); err != nil {
			break
		}
	}
	return "", lastErr
}

// backoff base*2^(attempt-1) с разбросом ±10%, но не меньше base.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.1
	delay += jitter * (rand.Float64()*2 - 1)
	wait := time.Duration(delay)
	if wait < base {
		wait = base
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// internal/blockchain/solbc/endpoint.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrNoHealthyEndpoint возникает, когда ни один RPC-узел не ответил на проверку здоровья.
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoint")

// HealthChecker — минимальный интерфейс для проверки узла.
type HealthChecker interface {
	GetHealth(ctx context.Context) (string, error)
}

// EndpointOptions задаёт параметры выбора узла.
type EndpointOptions struct {
	MaxTries     uint
	RetryDelay   time.Duration
	ProbeTimeout time.Duration
}

// DefaultEndpointOptions возвращает настройки по умолчанию.
func DefaultEndpointOptions() EndpointOptions {
	return EndpointOptions{
		MaxTries:     5,
		RetryDelay:   500 * time.Millisecond,
		ProbeTimeout: 5 * time.Second,
	}
}

// SelectEndpoint перебирает список RPC-узлов и возвращает клиент первого здорового.
// Каждая попытка проходит по всему списку; между попытками — экспоненциальная пауза.
func SelectEndpoint(ctx context.Context, urls []string, logger *zap.Logger, opts EndpointOptions) (*Client, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: rpc list is empty", ErrNoHealthyEndpoint)
	}
	clients := make([]*Client, len(urls))
	checkers := make([]HealthChecker, len(urls))
	for i, url := range urls {
		clients[i] = NewClient(url, logger)
		checkers[i] = clients[i]
	}

	idx, err := selectHealthy(ctx, checkers, logger, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("RPC endpoint selected", zap.String("url", clients[idx].URL()))
	return clients[idx], nil
}

// selectHealthy возвращает индекс первого узла, ответившего "ok".
func selectHealthy(ctx context.Context, checkers []HealthChecker, logger *zap.Logger, opts EndpointOptions) (int, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.RetryDelay
	policy.MaxInterval = opts.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		logger.Warn("No healthy RPC endpoint yet, retrying",
			zap.Error(err),
			zap.Duration("backoff", d))
	}

	operation := func() (int, error) {
		var lastErr error
		for i, checker := range checkers {
			probeCtx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
			status, err := checker.GetHealth(probeCtx)
			cancel()
			if err == nil && status == "ok" {
				return i, nil
			}
			if err == nil {
				err = fmt.Errorf("node status %q", status)
			}
			lastErr = err
		}
		return -1, fmt.Errorf("%w: %v", ErrNoHealthyEndpoint, lastErr)
	}

	maxTries := opts.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	idx, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return -1, err
	}
	return idx, nil
}

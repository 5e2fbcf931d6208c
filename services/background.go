package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BackgroundTasks runs fire-and-forget work that must not fail or delay the request that triggered it.
type BackgroundTasks struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
}

func NewBackgroundTasks(timeout time.Duration, logger *slog.Logger) *BackgroundTasks {
	return &BackgroundTasks{timeout: timeout, logger: logger}
}

func (b *BackgroundTasks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.logger.Error("background task failed", slog.String("task", name), slog.Any("error", err))
		}
	}()
}

// Wait blocks until every started task has returned.
func (b *BackgroundTasks) Wait() {
	b.wg.Wait()
}

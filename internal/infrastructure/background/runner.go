// Package background runs fire-and-forget side effects (shipment sync, emails) off the
// request path. Each task gets one attempt with its own timeout; failures are logged and
// counted, never returned to the caller that scheduled them.
package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/pkg/logger"
)

type Runner struct {
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewRunner(timeout time.Duration, m *metrics.Metrics) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{timeout: timeout, metrics: m}
}

// Go schedules fn on a context detached from ctx's cancellation but carrying its logger.
// It reports false if the runner is already shut down.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		logger.WithContext(ctx).Warn().Str("task", name).Msg("Background runner closed, task dropped")
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	taskCtx := logger.Detach(ctx)
	go func() {
		defer r.wg.Done()
		err := r.run(taskCtx, name, fn)
		r.metrics.BackgroundTask(name, err)

		log := logger.WithContext(taskCtx)
		if err != nil {
			log.Error().Err(err).Str("task", name).Msg("Background task failed")
			return
		}
		log.Debug().Str("task", name).Msg("Background task finished")
	}()
	return true
}

func (r *Runner) run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v\n%s", name, p, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Wait blocks until every scheduled task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for the running ones until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

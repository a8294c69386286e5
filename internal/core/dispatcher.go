package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mikey/link-joiner/internal/retry"
)

// Dispatcher runs URL tasks against the browser pool. A single semaphore caps
// running tasks across all messages.
type Dispatcher struct {
	pool     SessionPool
	sem      *semaphore.Weighted
	workers  int
	settings Settings
	logger   *zap.Logger
	metrics  Metrics
	running  atomic.Int32
}

// NewDispatcher creates a dispatcher with the given concurrency ceiling. The
// ceiling never exceeds the number of browser sessions.
func NewDispatcher(pool SessionPool, workers int, settings Settings, logger *zap.Logger, metrics Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if n := pool.Size(); n > 0 && n < workers {
		workers = n
	}
	if metrics == nil {
		metrics = NopMetrics
	}
	return &Dispatcher{
		pool:     pool,
		sem:      semaphore.NewWeighted(int64(workers)),
		workers:  workers,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// Workers returns the concurrency ceiling
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Running returns the number of tasks currently in the running state
func (d *Dispatcher) Running() int {
	return int(d.running.Load())
}

// Dispatch processes every URL and returns the final state of each task.
// Failures are recorded per task and never cancel sibling tasks.
func (d *Dispatcher) Dispatch(ctx context.Context, urls []string, password string) []ProcessingTask {
	tasks := make([]ProcessingTask, len(urls))
	for i, u := range urls {
		tasks[i] = ProcessingTask{
			ID:       uuid.NewString(),
			URL:      u,
			Password: password,
			State:    TaskPending,
		}
	}

	var g errgroup.Group
	for i := range tasks {
		task := &tasks[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					d.fail(task, &URLProcessingError{URL: task.URL, Cause: fmt.Errorf("panic: %v", r)})
				}
			}()
			d.run(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	return tasks
}

func (d *Dispatcher) run(ctx context.Context, task *ProcessingTask) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.fail(task, &URLProcessingError{URL: task.URL, Cause: err})
		return
	}
	defer d.sem.Release(1)

	timeout := d.settings.URLTimeout()
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	task.State = TaskRunning
	task.StartedAt = time.Now()
	d.running.Add(1)
	d.metrics.TaskStarted()
	defer d.running.Add(-1)

	d.logger.Debug("URL task started",
		zap.String("task_id", task.ID),
		zap.String("url", task.URL),
		zap.Bool("with_password", task.Password != ""))

	session, err := d.pool.Acquire(taskCtx)
	if err != nil {
		d.finish(taskCtx, task, fmt.Errorf("acquire browser session: %w", err))
		return
	}
	defer d.pool.Release(session)

	err = retry.Do(taskCtx, d.settings.MaxRetries(), d.settings.RetryDelay(), func(ctx context.Context, attempt int) error {
		task.Attempts = attempt
		if err := d.attempt(ctx, session, task); err != nil {
			d.logger.Warn("URL attempt failed",
				zap.String("task_id", task.ID),
				zap.String("url", task.URL),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return nil
	})
	d.finish(taskCtx, task, err)
}

// attempt runs one navigate, click, join sequence
func (d *Dispatcher) attempt(ctx context.Context, session Automation, task *ProcessingTask) error {
	if err := session.Navigate(ctx, task.URL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := session.ClickPrimaryButton(ctx); err != nil {
		return fmt.Errorf("click primary button: %w", err)
	}
	if err := session.PerformJoinClicks(ctx, task.Password); err != nil {
		return fmt.Errorf("join clicks: %w", err)
	}
	return nil
}

func (d *Dispatcher) finish(taskCtx context.Context, task *ProcessingTask, err error) {
	switch {
	case err == nil:
		task.State = TaskSucceeded
		task.FinishedAt = time.Now()
		d.metrics.TaskFinished(task.State, task.FinishedAt.Sub(task.StartedAt))
		d.logger.Info("URL processed",
			zap.String("task_id", task.ID),
			zap.String("url", task.URL),
			zap.Int("attempts", task.Attempts))
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		d.fail(task, &URLTimeoutError{URL: task.URL})
	default:
		d.fail(task, &URLProcessingError{URL: task.URL, Cause: err})
	}
}

func (d *Dispatcher) fail(task *ProcessingTask, err error) {
	task.State = TaskFailed
	task.Err = err
	task.Reason = err.Error()
	task.FinishedAt = time.Now()
	if !task.StartedAt.IsZero() {
		d.metrics.TaskFinished(task.State, task.FinishedAt.Sub(task.StartedAt))
	} else {
		d.metrics.TaskFinished(task.State, 0)
	}
	d.logger.Error("URL processing failed",
		zap.String("task_id", task.ID),
		zap.String("url", task.URL),
		zap.Int("attempts", task.Attempts),
		zap.Error(err))
}

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDispatcherCapsConcurrency(t *testing.T) {
	pool := newFakePool(2)
	pool.behaviour = func(ctx context.Context, url string, call int) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	}
	d := NewDispatcher(pool, 2, newFakeSettings(), zaptest.NewLogger(t), nil)

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://open.kakao.com/o/%d", i)
	}
	tasks := d.Dispatch(context.Background(), urls, "")

	require.Len(t, tasks, 5)
	for _, task := range tasks {
		require.Equal(t, TaskSucceeded, task.State, task.Reason)
		require.NotEmpty(t, task.ID)
	}
	require.LessOrEqual(t, pool.maxRunning.Load(), int32(2))
	require.Equal(t, int32(2), pool.maxRunning.Load())
	require.Equal(t, 0, d.Running())
}

func TestDispatcherTimeoutIsolated(t *testing.T) {
	pool := newFakePool(2)
	pool.behaviour = func(ctx context.Context, url string, call int) error {
		if url == "https://open.kakao.com/o/slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	settings := newFakeSettings()
	settings.urlTimeout = 100 * time.Millisecond
	d := NewDispatcher(pool, 2, settings, zaptest.NewLogger(t), nil)

	urls := []string{
		"https://open.kakao.com/o/a",
		"https://open.kakao.com/o/slow",
		"https://open.kakao.com/o/b",
		"https://open.kakao.com/o/c",
		"https://open.kakao.com/o/d",
	}
	tasks := d.Dispatch(context.Background(), urls, "")

	for _, task := range tasks {
		if task.URL == "https://open.kakao.com/o/slow" {
			require.Equal(t, TaskFailed, task.State)
			var timeout *URLTimeoutError
			require.ErrorAs(t, task.Err, &timeout)
			require.Equal(t, task.URL, timeout.URL)
			continue
		}
		require.Equal(t, TaskSucceeded, task.State, task.Reason)
	}
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	pool := newFakePool(1)
	pool.behaviour = func(ctx context.Context, url string, call int) error {
		if call < 3 {
			return errors.New("page not ready")
		}
		return nil
	}
	d := NewDispatcher(pool, 1, newFakeSettings(), zaptest.NewLogger(t), nil)

	tasks := d.Dispatch(context.Background(), []string{"https://open.kakao.com/o/x"}, "pw1234")

	require.Len(t, tasks, 1)
	require.Equal(t, TaskSucceeded, tasks[0].State)
	require.Equal(t, 3, tasks[0].Attempts)
	require.Equal(t, []string{"pw1234"}, pool.passwords)
}

func TestDispatcherFailureAfterRetries(t *testing.T) {
	pool := newFakePool(2)
	cause := errors.New("button missing")
	pool.behaviour = func(ctx context.Context, url string, call int) error {
		if url == "https://open.kakao.com/o/bad" {
			return cause
		}
		return nil
	}
	d := NewDispatcher(pool, 2, newFakeSettings(), zaptest.NewLogger(t), nil)

	tasks := d.Dispatch(context.Background(), []string{"https://open.kakao.com/o/bad", "https://open.kakao.com/o/good"}, "")

	require.Equal(t, TaskFailed, tasks[0].State)
	require.Equal(t, 3, tasks[0].Attempts)
	var procErr *URLProcessingError
	require.ErrorAs(t, tasks[0].Err, &procErr)
	require.ErrorIs(t, tasks[0].Err, cause)
	require.Contains(t, tasks[0].Reason, "navigate")

	require.Equal(t, TaskSucceeded, tasks[1].State)
}

func TestDispatcherClampsWorkersToPool(t *testing.T) {
	d := NewDispatcher(newFakePool(1), 4, newFakeSettings(), zaptest.NewLogger(t), nil)
	require.Equal(t, 1, d.Workers())
}

func TestDispatcherRecoversTaskPanic(t *testing.T) {
	pool := newFakePool(2)
	pool.behaviour = func(ctx context.Context, url string, call int) error {
		if url == "https://open.kakao.com/o/boom" {
			panic("nil map write")
		}
		return nil
	}
	d := NewDispatcher(pool, 2, newFakeSettings(), zaptest.NewLogger(t), nil)

	tasks := d.Dispatch(context.Background(), []string{"https://open.kakao.com/o/boom", "https://open.kakao.com/o/fine"}, "")

	require.Equal(t, TaskFailed, tasks[0].State)
	require.Contains(t, tasks[0].Reason, "panic: nil map write")
	var procErr *URLProcessingError
	require.ErrorAs(t, tasks[0].Err, &procErr)
	require.Equal(t, TaskSucceeded, tasks[1].State)
	require.Equal(t, 0, d.Running())
	require.Len(t, pool.sessions, 2)
}

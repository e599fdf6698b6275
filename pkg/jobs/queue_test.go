package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]interface{}{}
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.ID] = job.Payload
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Payload: "token-a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "token-a", seen["a"])
	mu.Unlock()
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts atomic.Int32
	failed := make(chan Job, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("render failed")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnFailure:  func(job Job, err error) { failed <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))

	select {
	case job := <-failed:
		assert.Equal(t, "a", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not called")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("exports", nil, QueueConfig{RetryDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, q.backoff(1))
	assert.Equal(t, 200*time.Millisecond, q.backoff(2))
	assert.Equal(t, 400*time.Millisecond, q.backoff(3))
	assert.Equal(t, time.Second, q.backoff(6))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("exports", nil, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrNotRunning)
}

func TestQueueRejectsDuplicateIDsUntilDone(t *testing.T) {
	release := make(chan struct{})
	done := make(chan string, 2)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		<-release
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	err := q.Enqueue(Job{ID: "a"})
	require.ErrorIs(t, err, ErrDuplicateJob)
	assert.Equal(t, 1, q.Stats().Tracked)

	close(release)
	assert.Equal(t, "a", <-done)
	require.Eventually(t, func() bool { return q.Stats().Tracked == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Enqueue(Job{ID: "a"}), "finished ids may be queued again")
	assert.Equal(t, "a", <-done)
}

func TestQueueKeepsIDTrackedWhileRetrying(t *testing.T) {
	var attempts atomic.Int32
	failed := make(chan Job, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("render failed")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: 50 * time.Millisecond,
		OnFailure:  func(job Job, err error) { failed <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrDuplicateJob)

	<-failed
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 0, q.Stats().Tracked)
}

func TestQueueBoundsAttemptsWithJobTimeout(t *testing.T) {
	errs := make(chan error, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		errs <- ctx.Err()
		return nil
	}, QueueConfig{JobTimeout: 20 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("attempt was not cancelled")
	}
}

func TestQueueStatsAndStop(t *testing.T) {
	q := NewQueue("exports", func(ctx context.Context, job Job) error { return nil }, QueueConfig{Workers: 3})
	assert.Equal(t, Stats{Workers: 3}, q.Stats())

	q.Start(context.Background())
	assert.True(t, q.Stats().Running)

	q.Stop()
	assert.False(t, q.Stats().Running)
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrNotRunning)
}

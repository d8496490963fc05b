package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Register("greet", func(_ context.Context, job Job) error {
		done <- job
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "greet", Payload: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "hi", job.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailures(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	var calls int32
	succeeded := make(chan struct{})
	q.Register("flaky", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("boom")
		}
		close(succeeded)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "flaky"})
	require.NoError(t, err)

	select {
	case <-succeeded:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueRejectsUnknownTypesAndStoppedQueue(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	_, err := q.Enqueue(Job{Type: "x"})
	assert.Error(t, err, "not started")

	q.Start(context.Background())
	_, err = q.Enqueue(Job{Type: "x"})
	assert.Error(t, err, "no handler")
	q.Stop()
}

package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "teambot/internal/platform/errors"
)

func TestJobsRunAndDrainOnShutdown(t *testing.T) {
	p := NewPool(Options{Workers: 2, Queue: 16})
	p.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(Job{Name: "count", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, int32(10), ran.Load(), "every queued job runs before shutdown returns")
}

func TestConcurrencyIsBounded(t *testing.T) {
	p := NewPool(Options{Workers: 3, Queue: 32})
	p.Start(context.Background())

	var cur, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(Job{Name: "peak", Run: func(context.Context) error {
			defer wg.Done()
			n := cur.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
			return nil
		}}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(3), "never more in-flight jobs than workers")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestFullQueueRejectsSubmission(t *testing.T) {
	p := NewPool(Options{Workers: 1, Queue: 1})
	// not started, so nothing consumes the queue

	require.NoError(t, p.Submit(Job{Name: "first", Run: func(context.Context) error { return nil }}))
	err := p.Submit(Job{Name: "second", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeTransport))
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := NewPool(Options{Workers: 1, Queue: 4})
	p.Start(context.Background())
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit(Job{Name: "late", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	p := NewPool(Options{Workers: 1, Queue: 4})
	p.Start(context.Background())

	require.NoError(t, p.Submit(Job{Name: "boom", Run: func(context.Context) error {
		panic("boom")
	}}))

	done := make(chan struct{})
	require.NoError(t, p.Submit(Job{Name: "after", Run: func(context.Context) error {
		close(done)
		return nil
	}}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

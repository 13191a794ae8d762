package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingService runs until Stop, or returns startFn's result when set.
type blockingService struct {
	started atomic.Bool
	stopped atomic.Bool
	stop    chan struct{}
	once    sync.Once
	startFn func() error
}

func newBlockingService(startFn func() error) *blockingService {
	return &blockingService{stop: make(chan struct{}), startFn: startFn}
}

func (m *blockingService) Start() error {
	m.started.Store(true)
	if m.startFn != nil {
		return m.startFn()
	}
	<-m.stop
	return nil
}

func (m *blockingService) Stop() {
	m.stopped.Store(true)
	m.once.Do(func() { close(m.stop) })
}

func TestLifecycleCancelStopsEveryService(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	first, second := newBlockingService(nil), newBlockingService(nil)
	lc.Add("first", first)
	lc.Add("second", second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return first.started.Load() && second.started.Load()
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle ignored cancellation")
	}
	assert.True(t, first.stopped.Load())
	assert.True(t, second.stopped.Load())
}

func TestLifecycleReturnsWhenServicesFinish(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	svc := newBlockingService(func() error { return nil })
	lc.Add("batch", svc)

	done := make(chan error, 1)
	go func() { done <- lc.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not return after its only service finished")
	}
	assert.True(t, svc.stopped.Load())
}

func TestLifecycleReturnsServiceError(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	boom := errors.New("boom")
	lc.Add("waiter", newBlockingService(nil))
	lc.Add("failing", newBlockingService(func() error { return boom }))

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestContextServiceStopCancels(t *testing.T) {
	running := make(chan struct{})
	svc := NewContextService(func(ctx context.Context) error {
		close(running)
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	<-running
	svc.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation by Stop is a clean exit")
	case <-time.After(5 * time.Second):
		t.Fatal("context service did not stop")
	}
}

func TestContextServicePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewContextService(func(context.Context) error { return boom })
	assert.ErrorIs(t, svc.Start(), boom)
}

func TestLifecycleCancelStopsContextService(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	var cancelled atomic.Bool
	lc.Add("batch", NewContextService(func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, lc.Run(ctx))
	assert.Eventually(t, cancelled.Load, 2*time.Second, 10*time.Millisecond)
}

package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockService struct {
	started atomic.Bool
	stopped atomic.Bool
	runFn   func(ctx context.Context) error
}

func (m *mockService) Run(ctx context.Context) error {
	m.started.Store(true)
	defer m.stopped.Store(true)
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func runAsync(lc *Lifecycle, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
		return nil
	}
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	svc1 := &mockService{}
	svc2 := &mockService{}
	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(lc, ctx)

	require.Eventually(t, func() bool {
		return svc1.started.Load() && svc2.started.Load()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
}

func TestLifecycleFirstServiceToFinishStopsTheRest(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	finite := &mockService{runFn: func(context.Context) error { return nil }}
	forever := &mockService{}
	lc.Add("finite", finite)
	lc.Add("forever", forever)

	assert.NoError(t, waitDone(t, runAsync(lc, context.Background())))
	assert.True(t, forever.stopped.Load())
}

func TestLifecycleReturnsServiceError(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	boom := errors.New("boom")

	lc.Add("broken", &mockService{runFn: func(context.Context) error { return boom }})
	other := &mockService{}
	lc.Add("other", other)

	err := waitDone(t, runAsync(lc, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service broken")
	assert.True(t, other.stopped.Load())
}

func TestLifecycleWithNoServices(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	assert.NoError(t, lc.Run(context.Background()))
}

func TestServiceFunc(t *testing.T) {
	called := false
	svc := ServiceFunc(func(ctx context.Context) error {
		called = true
		return ctx.Err()
	})

	assert.NoError(t, svc.Run(context.Background()))
	assert.True(t, called)
}

package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type mockService struct {
	name    string
	started atomic.Bool
	stopped atomic.Bool
	runErr  error
}

func (m *mockService) Name() string { return m.name }

func (m *mockService) Run(ctx context.Context) error {
	m.started.Store(true)
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return nil
}

func (m *mockService) Shutdown(context.Context) error {
	m.stopped.Store(true)
	return nil
}

func TestLifecycleStartsAndStopsServices(t *testing.T) {
	logger := zaptest.NewLogger(t)
	lc := NewLifecycle(logger)

	svc1 := &mockService{name: "svc1"}
	svc2 := &mockService{name: "svc2"}

	lc.Add(svc1)
	lc.Add(svc2)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	// Wait for services to start
	deadline := time.After(2 * time.Second)
	for {
		if svc1.started.Load() && svc2.started.Load() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("services did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	// Trigger shutdown
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
}

func TestLifecycleServiceErrorTriggersShutdown(t *testing.T) {
	logger := zaptest.NewLogger(t)
	lc := NewLifecycle(logger)

	boom := errors.New("boom")
	failing := &mockService{name: "failing", runErr: boom}
	steady := &mockService{name: "steady"}

	lc.Add(steady)
	lc.Add(failing)

	done := make(chan error, 1)
	go func() {
		done <- lc.Run(context.Background())
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down after service failure")
	}
	assert.True(t, steady.stopped.Load(), "healthy services stop when a peer fails")
}

func TestFuncService(t *testing.T) {
	var ran, stopped bool

	svc := &FuncService{
		ServiceName: "probe",
		RunFn: func(context.Context) error {
			ran = true
			return nil
		},
		ShutdownFn: func(context.Context) error {
			stopped = true
			return nil
		},
	}

	assert.Equal(t, "probe", svc.Name())
	assert.NoError(t, svc.Run(context.Background()))
	assert.True(t, ran)

	assert.NoError(t, svc.Shutdown(context.Background()))
	assert.True(t, stopped)
}

func TestFuncServiceNilRunBlocksUntilDone(t *testing.T) {
	svc := &FuncService{ServiceName: "idle"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case <-done:
		t.Fatal("nil RunFn returned before ctx was done")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("nil RunFn did not unblock on cancel")
	}
}

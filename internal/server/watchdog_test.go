package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/mcutil/internal/logger"
)

// fakeServer is a restarter whose Start succeeds after a configurable number
// of failures.
type fakeServer struct {
	mu           sync.Mutex
	running      bool
	starts       int
	failuresLeft int
}

func (f *fakeServer) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeServer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("session did not appear")
	}
	f.running = true
	return nil
}

func (f *fakeServer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func TestWatchdogRestartsDownServer(t *testing.T) {
	srv := &fakeServer{}
	wd := NewWatchdog(srv, time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wd.Run(ctx) }()

	require.Eventually(t, srv.Running, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, srv.startCount(), "a healthy server needs exactly one restart")
}

func TestWatchdogKeepsRetryingAfterFailedRestart(t *testing.T) {
	srv := &fakeServer{failuresLeft: 2}
	wd := NewWatchdog(srv, time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wd.Run(ctx) }()

	// Two failed attempts, then the third succeeds: the loop must survive
	// the failures and keep polling.
	require.Eventually(t, srv.Running, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 3, srv.startCount())
}

func TestWatchdogLeavesHealthyServerAlone(t *testing.T) {
	srv := &fakeServer{running: true}
	wd := NewWatchdog(srv, time.Millisecond, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, wd.Run(ctx))
	assert.Zero(t, srv.startCount())
}

func TestWatchdogStopsOnCancellation(t *testing.T) {
	srv := &fakeServer{running: true}
	wd := NewWatchdog(srv, time.Hour, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wd.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop at the sleep boundary")
	}
}

package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
	"github.com/kebairia/mcutil/internal/session"
)

// fakeSessions is an in-memory session.Manager. Knobs control whether the
// session honors the stop command and whether termination actually kills it.
type fakeSessions struct {
	mu sync.Mutex

	alive map[string]bool

	creates    int
	inputs     []string
	terminates int

	createErr      error
	inputErr       error
	honorStop      bool
	honorTerminate bool
}

var _ session.Manager = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		alive:          make(map[string]bool),
		honorStop:      true,
		honorTerminate: true,
	}
}

func (f *fakeSessions) Create(name, dir string, command ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	f.alive[name] = true
	return nil
}

func (f *fakeSessions) Exists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[name]
}

func (f *fakeSessions) SendInput(name, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inputErr != nil {
		return f.inputErr
	}
	f.inputs = append(f.inputs, text)
	if text == "stop" && f.honorStop {
		f.alive[name] = false
	}
	return nil
}

func (f *fakeSessions) Terminate(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminates++
	if f.honorTerminate {
		f.alive[name] = false
	}
	return nil
}

func newTestSupervisor(t *testing.T, sessions session.Manager) *Supervisor {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.jar"), []byte("jar"), 0o644))

	cfg := config.ServerConfig{
		Dir:         dir,
		Jar:         "server.jar",
		SessionName: "minecraft",
		JavaMemory:  "4G",
	}
	sup := NewSupervisor(cfg, sessions, logger.Nop())
	sup.startTimeout = 100 * time.Millisecond
	sup.stopTimeout = 100 * time.Millisecond
	sup.restartPause = time.Millisecond
	sup.escalatePause = time.Millisecond
	sup.pollInterval = time.Millisecond
	return sup
}

func TestStartLaunchesSession(t *testing.T) {
	sessions := newFakeSessions()
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Start(context.Background()))
	assert.True(t, sup.Running())
	assert.Equal(t, StateRunning, sup.State())
	assert.Equal(t, 1, sessions.creates)
}

func TestStartWhenAlreadyRunningIsNoOp(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Start(context.Background()))
	assert.Zero(t, sessions.creates, "no second session may be created")
}

func TestStartMissingJarFailsFast(t *testing.T) {
	sessions := newFakeSessions()
	sup := newTestSupervisor(t, sessions)
	require.NoError(t, os.Remove(filepath.Join(sup.cfg.Dir, "server.jar")))

	err := sup.Start(context.Background())
	require.Error(t, err)
	assert.Zero(t, sessions.creates, "no side effect before the precondition check")
}

// vanishingSessions accepts Create but never reports the session as alive.
type vanishingSessions struct {
	*fakeSessions
}

func (v *vanishingSessions) Create(name, dir string, command ...string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creates++
	return nil
}

func (v *vanishingSessions) Exists(name string) bool {
	return false
}

func TestStartTimesOutWhenSessionNeverAppears(t *testing.T) {
	sessions := &vanishingSessions{fakeSessions: newFakeSessions()}
	sup := newTestSupervisor(t, sessions)
	sup.startTimeout = 10 * time.Millisecond

	err := sup.Start(context.Background())
	assert.ErrorIs(t, err, ErrStartTimeout)
	assert.Equal(t, 1, sessions.creates)
}

func TestStopGraceful(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Stop(context.Background(), 100*time.Millisecond))
	assert.False(t, sup.Running())
	assert.Equal(t, []string{"stop"}, sessions.inputs)
	assert.Zero(t, sessions.terminates, "graceful stop must not escalate")
}

func TestStopWhenNotRunningIsNoOp(t *testing.T) {
	sessions := newFakeSessions()
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Stop(context.Background(), 50*time.Millisecond))
	assert.Empty(t, sessions.inputs)
}

func TestStopEscalatesExactlyOnce(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sessions.honorStop = false // ignores the graceful stop
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Stop(context.Background(), 10*time.Millisecond))
	assert.Equal(t, 1, sessions.terminates)
	assert.False(t, sup.Running())
}

func TestStopFailsWhenSessionSurvivesEscalation(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sessions.honorStop = false
	sessions.honorTerminate = false
	sup := newTestSupervisor(t, sessions)

	err := sup.Stop(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStopFailed)
	assert.Equal(t, 1, sessions.terminates)
}

func TestRestart(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.Restart(context.Background()))
	assert.True(t, sup.Running())
	assert.Equal(t, []string{"stop"}, sessions.inputs)
	assert.Equal(t, 1, sessions.creates)
}

func TestRestartShortCircuitsOnFailedStop(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sessions.honorStop = false
	sessions.honorTerminate = false
	sup := newTestSupervisor(t, sessions)

	err := sup.Restart(context.Background())
	require.Error(t, err)
	assert.Zero(t, sessions.creates, "start must not run after a failed stop")
}

func TestSendCommand(t *testing.T) {
	sessions := newFakeSessions()
	sessions.alive["minecraft"] = true
	sup := newTestSupervisor(t, sessions)

	require.NoError(t, sup.SendCommand("say hello"))
	assert.Equal(t, []string{"say hello"}, sessions.inputs)
}

func TestSendCommandRequiresRunningServer(t *testing.T) {
	sessions := newFakeSessions()
	sup := newTestSupervisor(t, sessions)

	err := sup.SendCommand("say hello")
	assert.ErrorIs(t, err, ErrNotRunning)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
	"github.com/kebairia/mcutil/internal/session"
)

var (
	// ErrStartTimeout indicates the session never appeared within the start
	// timeout. The server may still come up; callers should re-probe.
	ErrStartTimeout = errors.New("server did not start in time")
	// ErrStopFailed indicates the session survived both the graceful stop and
	// the escalation to session termination.
	ErrStopFailed = errors.New("server did not stop")
	// ErrNotRunning indicates an operation that requires a running server.
	ErrNotRunning = errors.New("server is not running")
)

// State is the supervisor's view of the server lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Supervisor owns the started/stopped lifecycle of the server process inside
// its detached session. The session itself is the source of truth for
// liveness; the internal state only guards transitions.
type Supervisor struct {
	mu    sync.Mutex
	state State

	cfg      config.ServerConfig
	sessions session.Manager
	log      logger.Logger
	gui      bool

	startTimeout  time.Duration
	stopTimeout   time.Duration
	restartPause  time.Duration
	escalatePause time.Duration
	pollInterval  time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithGUI starts the server with its graphical console instead of nogui.
func WithGUI() Option {
	return func(s *Supervisor) {
		s.gui = true
	}
}

// NewSupervisor returns a supervisor over the configured server session.
func NewSupervisor(cfg config.ServerConfig, sessions session.Manager, log logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:           cfg,
		sessions:      sessions,
		log:           log,
		startTimeout:  10 * time.Second,
		stopTimeout:   30 * time.Second,
		restartPause:  3 * time.Second,
		escalatePause: 2 * time.Second,
		pollInterval:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running probes the detached session for liveness.
func (s *Supervisor) Running() bool {
	return s.sessions.Exists(s.cfg.SessionName)
}

// State returns the supervisor's last known lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) javaCommand() []string {
	mem := s.cfg.JavaMemory
	args := []string{"java", "-Xmx" + mem, "-Xms" + mem, "-jar", s.cfg.Jar}
	if !s.gui {
		args = append(args, "nogui")
	}
	return args
}

// Start launches the server inside a new detached session and waits for the
// session to appear. A session that already exists is a warning, not an
// error: liveness is external state and may race with other invocations.
func (s *Supervisor) Start(ctx context.Context) error {
	name := s.cfg.SessionName
	if s.sessions.Exists(name) {
		s.log.Warn("server is already running", "session", name)
		s.setState(StateRunning)
		return nil
	}

	if _, err := os.Stat(s.cfg.JarPath()); err != nil {
		return fmt.Errorf("server jar %q: %w", s.cfg.JarPath(), err)
	}

	s.setState(StateStarting)
	s.log.Info("starting server", "session", name, "dir", s.cfg.Dir)

	if err := s.sessions.Create(name, s.cfg.Dir, s.javaCommand()...); err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("start server: %w", err)
	}

	if !waitFor(ctx, s.startTimeout, s.pollInterval, func() bool {
		return s.sessions.Exists(name)
	}) {
		// Timed out: the session may still appear. Re-probe once and let
		// the caller decide what to do with the ambiguity.
		if s.sessions.Exists(name) {
			s.setState(StateRunning)
			return nil
		}
		s.setState(StateStopped)
		return fmt.Errorf("%w: session %q", ErrStartTimeout, name)
	}

	s.setState(StateRunning)
	s.log.Info("server started", "session", name)
	return nil
}

// Stop sends the graceful shutdown command and waits up to timeout for the
// session to disappear. If it persists, the session is terminated (one
// escalation, no retries) and probed one final time.
func (s *Supervisor) Stop(ctx context.Context, timeout time.Duration) error {
	name := s.cfg.SessionName
	if !s.sessions.Exists(name) {
		s.log.Warn("server is not running", "session", name)
		s.setState(StateStopped)
		return nil
	}
	if timeout <= 0 {
		timeout = s.stopTimeout
	}

	s.setState(StateStopping)
	s.log.Info("stopping server", "session", name)

	if err := s.sessions.SendInput(name, "stop"); err != nil {
		return fmt.Errorf("send stop command: %w", err)
	}

	if waitFor(ctx, timeout, s.pollInterval, func() bool {
		return !s.sessions.Exists(name)
	}) {
		s.setState(StateStopped)
		s.log.Info("server stopped", "session", name)
		return nil
	}

	s.log.Warn("server did not stop gracefully, terminating session", "session", name)
	if err := s.sessions.Terminate(name); err != nil {
		return fmt.Errorf("terminate session: %w", err)
	}
	sleep(ctx, s.escalatePause)
	if s.sessions.Exists(name) {
		return fmt.Errorf("%w: session %q still present", ErrStopFailed, name)
	}

	s.setState(StateStopped)
	s.log.Info("server force stopped", "session", name)
	return nil
}

// Restart stops the server, pauses briefly, and starts it again. A failed
// stop short-circuits: no start is attempted.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.log.Info("restarting server", "session", s.cfg.SessionName, "pause", s.restartPause)
	if err := s.Stop(ctx, s.stopTimeout); err != nil {
		return err
	}
	sleep(ctx, s.restartPause)
	return s.Start(ctx)
}

// SendCommand delivers a command line to the running server's input stream.
// Success means delivered, not executed; the session offers no acknowledgment.
func (s *Supervisor) SendCommand(text string) error {
	name := s.cfg.SessionName
	if !s.sessions.Exists(name) {
		return fmt.Errorf("%w: session %q", ErrNotRunning, name)
	}
	if err := s.sessions.SendInput(name, text); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	s.log.Info("command sent", "command", text)
	return nil
}

// waitFor polls cond every interval until it holds, the timeout elapses, or
// ctx is cancelled.
func waitFor(ctx context.Context, timeout, interval time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kebairia/mcutil/internal/logger"
)

// ErrSessionCommand indicates that the session manager tool failed.
var ErrSessionCommand = errors.New("session command failed")

// Manager is the detached-session control surface. A session runs a command
// independent of the invoking terminal and accepts text on its input stream.
type Manager interface {
	// Create starts command inside a new detached session named name,
	// with dir as its working directory.
	Create(name, dir string, command ...string) error
	// Exists reports whether a session with the given name is alive.
	Exists(name string) bool
	// SendInput delivers text plus a newline to the session's input stream.
	SendInput(name, text string) error
	// Terminate instructs the session manager to tear the session down.
	Terminate(name string) error
}

const commandTimeout = 10 * time.Second

// ScreenManager implements Manager on top of GNU screen.
type ScreenManager struct {
	log logger.Logger
}

var _ Manager = (*ScreenManager)(nil)

// NewScreenManager returns a Manager backed by the screen binary.
func NewScreenManager(log logger.Logger) *ScreenManager {
	return &ScreenManager{log: log}
}

func (m *ScreenManager) run(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "screen", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: screen %s: %v: %s",
			ErrSessionCommand, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Create starts command in a new detached screen session.
func (m *ScreenManager) Create(name, dir string, command ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	args := append([]string{"-dmS", name}, command...)
	m.log.Debug("creating detached session", "session", name, "dir", dir)
	cmd := exec.CommandContext(ctx, "screen", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: create session %q: %v: %s",
			ErrSessionCommand, name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Exists queries `screen -ls` for the named session. A failing or missing
// screen binary reads as "not running" rather than an error.
func (m *ScreenManager) Exists(name string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	// screen -ls exits non-zero when no sessions exist; inspect output anyway.
	out, err := exec.CommandContext(ctx, "screen", "-ls").Output()
	if len(out) == 0 && err != nil {
		return false
	}
	return strings.Contains(string(out), "."+name)
}

// SendInput stuffs text plus a newline into the session's input stream.
// Delivery is fire-and-forget: success means delivered, not executed.
func (m *ScreenManager) SendInput(name, text string) error {
	return m.run("-S", name, "-X", "stuff", text+"\n")
}

// Terminate quits the named session.
func (m *ScreenManager) Terminate(name string) error {
	m.log.Debug("terminating session", "session", name)
	return m.run("-S", name, "-X", "quit")
}

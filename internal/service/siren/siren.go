package siren

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
)

var (
	// ErrNoCommand indicates that no siren command is configured.
	ErrNoCommand = errors.New("siren command is not configured")
	// ErrAlreadySounding indicates that a siren process is still running.
	ErrAlreadySounding = errors.New("siren is already sounding")
)

// Siren starts an external program, e.g. a script driving a buzzer or a
// notification sender. The command is started asynchronously and reaped in
// the background. Only the process the siren started, or the one recorded in
// its PID file by a previous run, is ever considered running or killed.
type Siren struct {
	// command is the program followed by its arguments.
	command []string
	// pidFile records the running siren across restarts; empty disables it.
	pidFile string
	// findProcess looks a process up by ID; nil process means not found.
	findProcess func(pid int) (ps.Process, error)
	// kill terminates a process by ID.
	kill func(pid int) error

	// mu guards pid and done.
	mu sync.Mutex
	// pid is the siren process being tracked; zero when none.
	pid int
	// done is closed when a process started by this Siren exits; nil for adopted processes.
	done chan struct{}
}

// Option configures a Siren.
type Option func(*Siren)

// WithPIDFile keeps the siren PID in path so a restarted checker can find and silence it.
func WithPIDFile(path string) Option {
	return func(s *Siren) {
		s.pidFile = path
	}
}

// New creates a siren for the command line.
func New(command []string, opts ...Option) *Siren {
	s := &Siren{
		command:     command,
		findProcess: ps.FindProcess,
		kill:        killProcess,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sound starts the command and returns without waiting for it to finish.
// The command is killed when ctx is cancelled.
func (s *Siren) Sound(ctx context.Context) error {
	if !s.configured() {
		return ErrNoCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid, err := s.current(ctx)
	if err != nil {
		return err
	}

	if pid != 0 {
		return ErrAlreadySounding
	}

	//nolint:gosec // The command line comes from the operator's settings file.
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("start siren %q: %w", s.command[0], err)
	}

	done := make(chan struct{})
	s.pid = cmd.Process.Pid
	s.done = done

	if err = s.writePIDFile(s.pid); err != nil {
		logger.WarnKV(ctx, "Failed to write siren PID file", "path", s.pidFile, "error", err)
	}

	logger.InfoKV(ctx, "Siren started", "command", s.command[0], "pid", s.pid)

	go s.reap(ctx, cmd, done)

	return nil
}

// Silence kills the tracked siren process and reports how many processes were stopped.
func (s *Siren) Silence(ctx context.Context) (int, error) {
	if !s.configured() {
		return 0, ErrNoCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid, err := s.current(ctx)
	if err != nil {
		return 0, err
	}

	if pid == 0 {
		return 0, nil
	}

	if err = s.kill(pid); err != nil {
		return 0, fmt.Errorf("kill siren process %d: %w", pid, err)
	}

	s.forget(ctx)

	logger.InfoKV(ctx, "Siren silenced", "command", s.command[0], "pid", pid)

	return 1, nil
}

// reap waits for a started process and clears the tracked state if it still refers to it.
func (s *Siren) reap(ctx context.Context, cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	close(done)

	s.mu.Lock()
	if s.done == done {
		s.forget(ctx)
	}
	s.mu.Unlock()

	if err != nil {
		logger.DebugKV(ctx, "Siren command exited", "command", s.command[0], "error", err)
	}
}

// current returns the PID of the running siren, adopting it from the PID file when needed.
// It must be called with mu held.
func (s *Siren) current(ctx context.Context) (int, error) {
	if s.pid != 0 {
		if s.done != nil {
			select {
			case <-s.done:
				s.forget(ctx)
			default:
				return s.pid, nil
			}
		} else {
			alive, err := s.isSiren(s.pid)
			if err != nil {
				return 0, err
			}

			if alive {
				return s.pid, nil
			}

			s.forget(ctx)
		}
	}

	pid := s.readPIDFile(ctx)
	if pid == 0 {
		return 0, nil
	}

	alive, err := s.isSiren(pid)
	if err != nil {
		return 0, err
	}

	if !alive {
		logger.DebugKV(ctx, "Removing stale siren PID file", "path", s.pidFile, "pid", pid)
		s.removePIDFile(ctx)

		return 0, nil
	}

	s.pid = pid

	return pid, nil
}

// isSiren reports whether pid is alive and runs the siren executable.
// The name check guards against PID reuse after a reboot.
func (s *Siren) isSiren(pid int) (bool, error) {
	if pid == os.Getpid() {
		return false, nil
	}

	process, err := s.findProcess(pid)
	if err != nil {
		return false, fmt.Errorf("find process %d: %w", pid, err)
	}

	return process != nil && process.Executable() == filepath.Base(s.command[0]), nil
}

// forget drops the tracked process and its PID file. It must be called with mu held.
func (s *Siren) forget(ctx context.Context) {
	s.pid = 0
	s.done = nil
	s.removePIDFile(ctx)
}

// configured reports whether a command line is set.
func (s *Siren) configured() bool {
	return len(s.command) > 0 && s.command[0] != ""
}

// readPIDFile returns the recorded PID or zero.
func (s *Siren) readPIDFile(ctx context.Context) int {
	if s.pidFile == "" {
		return 0
	}

	data, err := os.ReadFile(filepath.Clean(s.pidFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Failed to read siren PID file", "path", s.pidFile, "error", err)
		}

		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		logger.WarnKV(ctx, "Ignoring malformed siren PID file", "path", s.pidFile)
		s.removePIDFile(ctx)

		return 0
	}

	return pid
}

// writePIDFile records pid when a PID file is configured.
func (s *Siren) writePIDFile(pid int) error {
	if s.pidFile == "" {
		return nil
	}

	return os.WriteFile(filepath.Clean(s.pidFile), []byte(strconv.Itoa(pid)+"\n"), config.DefaultFilePermissions)
}

// removePIDFile deletes the PID file, ignoring a missing one.
func (s *Siren) removePIDFile(ctx context.Context) {
	if s.pidFile == "" {
		return
	}

	if err := os.Remove(filepath.Clean(s.pidFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Failed to remove siren PID file", "path", s.pidFile, "error", err)
	}
}

// killProcess terminates the process with the given ID.
func killProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return process.Kill()
}

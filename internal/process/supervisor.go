// Package process launches external tools and supervises their lifecycle.
//
// Output arrives as raw byte chunks from a merged stdout/stderr pipe so that
// callers can distinguish carriage-return progress updates from complete log
// lines. All callbacks fire from the supervisor's reader goroutine; callers
// that need single-threaded handling must re-post into their own loop.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"subflow/internal/services"
)

var commandContext = exec.CommandContext

const readBufferSize = 4096

// Callbacks receive process events. Nil members are skipped.
type Callbacks struct {
	// OnOutput receives each raw chunk read from the merged pipe.
	OnOutput func(chunk []byte)
	// OnFinished fires exactly once after the process exits and the pipe
	// is drained. normal is false when the process was killed by a signal.
	OnFinished func(exitCode int, normal bool)
	// OnError reports pipe read failures. The process keeps running.
	OnError func(err error)
}

// Spec describes a process to launch.
type Spec struct {
	Program   string
	Args      []string
	Dir       string
	Env       []string
	Callbacks Callbacks
}

// Supervisor launches and tracks external processes.
type Supervisor struct {
	terminateGrace time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTerminateGrace overrides the wait after each termination signal.
func WithTerminateGrace(grace time.Duration) Option {
	return func(s *Supervisor) {
		if grace > 0 {
			s.terminateGrace = grace
		}
	}
}

// New constructs a Supervisor with defaults.
func New(opts ...Option) *Supervisor {
	sup := &Supervisor{terminateGrace: 3 * time.Second}
	for _, opt := range opts {
		opt(sup)
	}
	return sup
}

// Handle tracks a single launched process.
type Handle struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu       sync.Mutex
	running  bool
	done     chan struct{}
	exitCode int
	normal   bool
}

// Launch starts the process and begins draining its merged output pipe.
// A failure to start maps to the launch error marker.
func (s *Supervisor) Launch(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.Program == "" {
		return nil, services.Wrap(services.ErrLaunch, "process", "launch", "program required", nil)
	}

	cmd := commandContext(ctx, spec.Program, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrLaunch, "process", "launch", "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrLaunch, "process", "launch", fmt.Sprintf("start %s", spec.Program), err)
	}

	handle := &Handle{
		cmd:     cmd,
		grace:   s.terminateGrace,
		running: true,
		done:    make(chan struct{}),
	}

	go func() {
		buf := make([]byte, readBufferSize)
		for {
			n, readErr := stdout.Read(buf)
			if n > 0 && spec.Callbacks.OnOutput != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				spec.Callbacks.OnOutput(chunk)
			}
			if readErr != nil {
				if !isExpectedReadError(readErr) && spec.Callbacks.OnError != nil {
					spec.Callbacks.OnError(fmt.Errorf("read process output: %w", readErr))
				}
				break
			}
		}

		waitErr := cmd.Wait()
		exitCode, normal := exitStatus(cmd, waitErr)

		handle.mu.Lock()
		handle.running = false
		handle.exitCode = exitCode
		handle.normal = normal
		handle.mu.Unlock()
		close(handle.done)

		if spec.Callbacks.OnFinished != nil {
			spec.Callbacks.OnFinished(exitCode, normal)
		}
	}()

	return handle, nil
}

func isExpectedReadError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}

func exitStatus(cmd *exec.Cmd, waitErr error) (int, bool) {
	state := cmd.ProcessState
	if state == nil {
		return -1, false
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return int(status.Signal()), false
	}
	if waitErr != nil && state.ExitCode() == -1 {
		return -1, false
	}
	return state.ExitCode(), true
}

// Running reports whether the process is still alive.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// ExitCode returns the recorded exit code after the process finished.
func (h *Handle) ExitCode() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return 0, false
	}
	return h.exitCode, true
}

// Done is closed when the process has exited and its pipe drained.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Terminate asks the process to exit, escalating from SIGTERM to SIGKILL.
// Each signal is followed by a grace wait; Terminate returns once the
// process exits or both waits elapse.
func (h *Handle) Terminate() {
	if !h.Running() {
		return
	}
	if h.cmd.Process == nil {
		return
	}

	_ = h.cmd.Process.Signal(syscall.SIGTERM)
	if h.waitWithGrace() {
		return
	}
	_ = h.cmd.Process.Kill()
	h.waitWithGrace()
}

func (h *Handle) waitWithGrace() bool {
	timer := time.NewTimer(h.grace)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

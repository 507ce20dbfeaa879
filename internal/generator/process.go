package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"
)

// stderrTailSize bounds how much stderr is kept for error messages.
const stderrTailSize = 4096

// waitDelay is how long output may stay open after the command exits, and
// how long a cancelled command has before it is killed outright.
const waitDelay = 2 * time.Second

// Process is a handle on a running generator command.
type Process interface {
	Pid() int
	// Done is closed once the process has exited and its output is drained.
	Done() <-chan struct{}
	// ExitErr is the exit result. It is only meaningful after Done is closed;
	// nil means the process exited with status 0.
	ExitErr() error
	// Terminate asks the process to shut down gracefully.
	Terminate() error
	// Kill forcibly stops the process and any children it spawned.
	Kill(ctx context.Context) error
	// Stderr returns the most recent stderr output.
	Stderr() string
}

// ExitError reports a generator command that failed.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
	if e.Code < 0 {
		msg = fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	}
	if tail := lastLines(e.Stderr, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type execProcess struct {
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	stderr *tailBuffer
}

// start launches cmd and pumps its output until it exits.
func start(cmd *exec.Cmd, stdout, stderr io.Writer) (*execProcess, error) {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	// The pipes are created here rather than with StdoutPipe so that the
	// read ends can be closed when a descendant outlives the command and
	// keeps the write ends open.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	p := &execProcess{
		cmd:    cmd,
		done:   make(chan struct{}),
		stderr: newTailBuffer(stderrTailSize),
	}

	err = cmd.Start()
	closeAll(outW, errW)
	if err != nil {
		closeAll(outR, errR)
		return nil, &ExitError{Command: commandName(cmd), Code: -1, Err: err}
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, outR)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(stderr, p.stderr), errR)
		return err
	})

	go func() {
		defer close(p.done)

		waitErr := cmd.Wait()
		p.drain(&g, outR, errR)

		if waitErr != nil {
			code := -1
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				code = exitErr.ExitCode()
			}
			p.err = &ExitError{Command: commandName(cmd), Code: code, Stderr: p.stderr.String(), Err: waitErr}
		}
	}()

	return p, nil
}

// drain waits for the output copies to finish once the command has exited.
// Anything left in the process group after waitDelay is killed and the
// pipes are closed.
func (p *execProcess) drain(g *errgroup.Group, pipes ...*os.File) {
	copied := make(chan error, 1)
	go func() { copied <- g.Wait() }()

	var err error
	select {
	case err = <-copied:
	case <-time.After(waitDelay):
		slog.Debug("generator output still open after exit", "pid", p.Pid())
		if kerr := p.ignoreDone(killGroup(p.cmd.Process)); kerr != nil {
			slog.Debug("killing generator process group", "pid", p.Pid(), "error", kerr)
		}
		closeAll(pipes...)
		err = <-copied
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Debug("copying generator output", "error", err)
	}
	closeAll(pipes...)
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) ExitErr() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Terminate signals the whole process group.
func (p *execProcess) Terminate() error {
	return p.ignoreDone(terminateGroup(p.cmd.Process))
}

// Kill kills the process group and every descendant that left it.
func (p *execProcess) Kill(ctx context.Context) error {
	// Descendants are listed first; once their parent dies they are
	// reparented and can no longer be found by ancestry.
	children, err := descendants(ctx, int32(p.Pid()))
	if err != nil {
		slog.Debug("listing generator children", "pid", p.Pid(), "error", err)
	}

	killErr := p.ignoreDone(killGroup(p.cmd.Process))

	for _, child := range children {
		if err := child.KillWithContext(ctx); err != nil {
			slog.Debug("killing generator child", "pid", child.Pid, "error", err)
		}
	}
	return killErr
}

func (p *execProcess) Stderr() string {
	return p.stderr.String()
}

func (p *execProcess) ignoreDone(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// descendants lists every descendant of pid, deepest first.
func descendants(ctx context.Context, pid int32) ([]*process.Process, error) {
	parent, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}

	children, err := parent.ChildrenWithContext(ctx)
	if err != nil {
		if errors.Is(err, process.ErrorNoChildren) {
			return nil, nil
		}
		return nil, err
	}

	var (
		out  []*process.Process
		errs []error
	)
	for _, child := range children {
		grandchildren, err := descendants(ctx, child.Pid)
		if err != nil && !errors.Is(err, process.ErrorProcessNotRunning) {
			errs = append(errs, err)
		}
		out = append(out, grandchildren...)
		out = append(out, child)
	}
	return out, errors.Join(errs...)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func commandName(cmd *exec.Cmd) string {
	return strings.Join(cmd.Args, " ")
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

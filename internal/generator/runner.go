// Package generator runs the static site generator's build and serve commands.
package generator

import (
	"context"
	"io"
	"os/exec"

	goerrors "github.com/go-errors/errors"

	"github.com/spboyer/mkcheck/internal/utils"
)

// DefaultCommand is the generator executable used when none is configured.
const DefaultCommand = "mkdocs"

// Runner starts the generator's commands against a configuration file.
type Runner interface {
	// Build runs a full build and blocks until it finishes. An empty
	// siteDir lets the generator use the site_dir from the configuration.
	Build(ctx context.Context, configPath, siteDir string) error

	// StartServe launches the development server and returns immediately.
	StartServe(ctx context.Context, configPath string) (Process, error)
}

// ExecRunner is a [Runner] backed by OS processes.
type ExecRunner struct {
	// Command is the generator executable followed by any fixed arguments,
	// e.g. ["python3", "-m", "mkdocs"]. Defaults to [DefaultCommand].
	Command []string
	// Dir is the working directory for the commands. Empty means the current one.
	Dir string
	// Stdout and Stderr receive the commands' output. Nil discards it;
	// the tail of stderr is kept for error messages either way.
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Build(ctx context.Context, configPath, siteDir string) error {
	args := []string{"build", "--config-file", configPath}
	if siteDir != "" {
		args = append(args, "--site-dir", siteDir)
	}

	cmd := r.command(ctx, args...)
	utils.CommandToSlog("running build", cmd)

	proc, err := start(cmd, r.Stdout, r.Stderr)
	if err != nil {
		return goerrors.Wrap(err, 0)
	}

	<-proc.Done()
	if err := proc.ExitErr(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return goerrors.Errorf("build interrupted: %w", ctxErr)
		}
		return goerrors.Wrap(err, 0)
	}
	return nil
}

func (r *ExecRunner) StartServe(_ context.Context, configPath string) (Process, error) {
	// The serve process is stopped explicitly with Terminate and Kill, so it
	// is not tied to a context that would kill it without a graceful signal.
	cmd := r.command(context.Background(), "serve", "--config-file", configPath, "--no-livereload", "--dirty")
	utils.CommandToSlog("starting server", cmd)

	proc, err := start(cmd, r.Stdout, r.Stderr)
	if err != nil {
		return nil, goerrors.Wrap(err, 0)
	}
	return proc, nil
}

func (r *ExecRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	command := r.Command
	if len(command) == 0 {
		command = []string{DefaultCommand}
	}

	argv := append(append([]string{}, command[1:]...), args...)

	//nolint:gosec // the generator command comes from the user's own settings
	cmd := exec.CommandContext(ctx, command[0], argv...)
	cmd.Dir = r.Dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killGroup(cmd.Process) }
	cmd.WaitDelay = waitDelay
	return cmd
}

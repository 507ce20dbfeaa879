package checks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spboyer/mkcheck/internal/generator"
)

// errStillStarting keeps the liveness poll going until the window is used up.
var errStillStarting = errors.New("server still starting")

// ExitedEarlyError reports a server that stopped inside the startup window.
type ExitedEarlyError struct {
	Err error
}

func (e *ExitedEarlyError) Error() string {
	if e.Err == nil {
		return "server exited during startup with status 0"
	}
	return "server exited during startup: " + e.Err.Error()
}

func (e *ExitedEarlyError) Unwrap() error { return e.Err }

func (c *Checker) serve(ctx context.Context, res *Result) error {
	stop := c.progress("Trying to start the server...")
	proc, err := c.runner.StartServe(ctx, c.opts.ConfigPath)
	if err != nil {
		stop()
		return fmt.Errorf("starting server: %w", err)
	}

	err = c.awaitStartup(ctx, proc)
	stop()

	if stopErr := c.shutdown(proc, res); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// awaitStartup returns nil once the server answered the probe URL or, with
// no probe configured, stayed alive for the whole startup window.
func (c *Checker) awaitStartup(ctx context.Context, proc generator.Process) error {
	window := c.opts.StartupWindow
	deadline := time.Now().Add(window)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.PollInterval
	b.MaxInterval = max(window/4, c.opts.PollInterval)
	b.MaxElapsedTime = window

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		select {
		case <-proc.Done():
			return backoff.Permanent(&ExitedEarlyError{Err: proc.ExitErr()})
		default:
		}
		if c.opts.ProbeURL == "" {
			return errStillStarting
		}
		return c.probe(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		if !errors.Is(err, errStillStarting) {
			slog.Debug("server not ready", "attempt", attempt, "error", err, "retry_in", next)
		}
	})

	switch {
	case err == nil:
		slog.Debug("server ready", "url", c.opts.ProbeURL, "attempts", attempt)
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("waiting for server: %w", ctx.Err())
	case errors.As(err, new(*ExitedEarlyError)):
		return err
	case c.opts.ProbeURL != "":
		return fmt.Errorf("server did not become ready at %s within %s: %w", c.opts.ProbeURL, window, err)
	}

	// The backoff stops short of the window; sit out the rest of it.
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-proc.Done():
		return &ExitedEarlyError{Err: proc.ExitErr()}
	case <-ctx.Done():
		return fmt.Errorf("waiting for server: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (c *Checker) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.ProbeURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("invalid probe URL: %w", err))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe returned %s", resp.Status)
	}
	return nil
}

// shutdown stops a running server: terminate, wait out the grace period,
// then kill the process tree.
func (c *Checker) shutdown(proc generator.Process, res *Result) error {
	select {
	case <-proc.Done():
		return nil
	default:
	}

	fmt.Fprintln(c.out, "Shutting down...") //nolint:errcheck
	if err := proc.Terminate(); err != nil {
		slog.Debug("terminating server", "pid", proc.Pid(), "error", err)
	}

	grace := time.NewTimer(c.opts.ShutdownGrace)
	defer grace.Stop()
	select {
	case <-proc.Done():
		return nil
	case <-grace.C:
	}

	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"server (pid %d) did not exit within %s of the terminate signal and was killed", proc.Pid(), c.opts.ShutdownGrace))

	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if err := proc.Kill(ctx); err != nil {
		return fmt.Errorf("killing server (pid %d): %w", proc.Pid(), err)
	}
	select {
	case <-proc.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("server (pid %d) still running after kill", proc.Pid())
	}
}

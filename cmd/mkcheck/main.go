package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spboyer/mkcheck/internal/checks"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Every stage passed
	ExitCheckFailed = 1 // The configuration failed a check
	ExitError       = 2 // Usage or settings error
)

// CheckFailedError indicates that mkcheck ran to completion but the
// configuration failed one of the checks.
type CheckFailedError struct {
	Result *checks.Result
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result.Path, e.Result.Kind)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()

	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var checkErr *CheckFailedError
	if errors.As(err, &checkErr) {
		// The report already describes the failure.
		return ExitCheckFailed
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitError
}

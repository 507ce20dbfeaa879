package checks

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// RuntimeIdentity names the Go toolchain that built the running binary.
func RuntimeIdentity() string {
	return runtime.Compiler + " " + runtime.Version()
}

// FormatDiagnostic renders a failure as
//
//	{path}: {stage} with {runtime}: {error}
//
// followed by a blank line and the indented stack trace. The trace is the
// one recorded where the error was created; errors without one get a stack
// captured at the caller.
func FormatDiagnostic(path, stage string, err error) string {
	var stackErr *goerrors.Error
	if !errors.As(err, &stackErr) {
		stackErr = goerrors.Wrap(err, 1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s with %s: %v\n\n", path, stage, RuntimeIdentity(), err)
	for _, line := range strings.Split(strings.TrimRight(string(stackErr.Stack()), "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

package utils

import (
	"context"
	"log/slog"
	"os/exec"
)

// CommandToSlog logs an external command line at debug level.
func CommandToSlog(msg string, cmd *exec.Cmd) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	var args []string
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:]
	}

	attrs := []any{
		"path", cmd.Path,
		"args", args,
	}

	attrs = addIf(attrs, "dir", cmd.Dir)

	slog.Debug(msg, attrs...)
}

func addIf[T comparable](attrs []any, name string, v T) []any {
	var zero T
	if v != zero {
		attrs = append(attrs, name, v)
	}

	return attrs
}

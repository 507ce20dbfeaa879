package siteconfig

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	goerrors "github.com/go-errors/errors"

	"github.com/spboyer/mkcheck/internal/utils"
)

// DefaultPython is the interpreter used when none is configured.
const DefaultPython = "python3"

// configErrorExitCode is what loadConfigScript exits with when the
// generator rejects the configuration, as opposed to crashing.
const configErrorExitCode = 3

const loadConfigScript = `import sys
from mkdocs.config import load_config
from mkdocs.exceptions import ConfigurationError
try:
    load_config(config_file=sys.argv[1])
except ConfigurationError as e:
    print(e, file=sys.stderr)
    sys.exit(3)
`

// GeneratorLoader validates a configuration with the generator's own loader
// by running it in a Python interpreter.
type GeneratorLoader struct {
	// Python is the interpreter to run. Defaults to DefaultPython.
	Python string
}

func (l *GeneratorLoader) Load(ctx context.Context, path string) error {
	python := l.Python
	if python == "" {
		python = DefaultPython
	}

	//nolint:gosec // the interpreter comes from the user's own settings
	cmd := exec.CommandContext(ctx, python, "-c", loadConfigScript, path)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	utils.CommandToSlog("loading config with generator", cmd)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	output := strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == configErrorExitCode {
		return goerrors.Wrap(&ConfigurationError{Path: path, Problems: nonEmptyLines(output)}, 0)
	}

	if output != "" {
		return goerrors.Errorf("generator config loader failed: %w: %s", err, lastLine(output))
	}
	return goerrors.Errorf("generator config loader failed: %w", err)
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func lastLine(s string) string {
	lines := nonEmptyLines(s)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

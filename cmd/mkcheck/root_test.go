package main

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spboyer/mkcheck/internal/checks"
	"github.com/spboyer/mkcheck/internal/reporting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSite creates a site directory with a docs folder and returns the
// path of its mkdocs.yml.
func writeSite(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	path := filepath.Join(dir, "mkdocs.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fakeMkDocs writes a shell script standing in for the mkdocs command.
func fakeMkDocs(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake mkdocs scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "mkdocs")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func runRoot(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func checkFailure(t *testing.T, err error) *checks.Result {
	t.Helper()
	var checkErr *CheckFailedError
	require.True(t, errors.As(err, &checkErr), "expected *CheckFailedError, got %T: %v", err, err)
	return checkErr.Result
}

func TestRoot_SchemaLoaderOnly(t *testing.T) {
	path := writeSite(t, "site_name: Docs\n")

	stdout, _, err := runRoot(t, path, "--loader", "schema", "--skip-build", "--skip-serve")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Checking "+path)
	assert.Contains(t, stdout, "Config OK: "+path)
}

func TestRoot_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkdocs.yml")

	stdout, _, err := runRoot(t, path, "--loader", "schema")
	res := checkFailure(t, err)
	assert.Equal(t, checks.KindMissingFile, res.Kind)
	assert.Equal(t, ExitCheckFailed, exitCode(err))
	assert.Contains(t, stdout, "Config file not found")
}

func TestRoot_ParseErrorJSON(t *testing.T) {
	path := writeSite(t, "site_name: [unterminated\n")

	stdout, _, err := runRoot(t, path, "--format", "json")
	res := checkFailure(t, err)
	assert.Equal(t, checks.KindParseError, res.Kind)

	var report jsonReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, path, report.Path)
	assert.Equal(t, checks.KindParseError, report.Kind)
	assert.Equal(t, 1, report.ExitCode)
	assert.Contains(t, report.Message, path+": Error loading YAML with "+checks.RuntimeIdentity())
	require.Len(t, report.Stages, 5)
	assert.Equal(t, checks.StatusPassed, report.Stages[0].Status)
	assert.Equal(t, checks.StatusFailed, report.Stages[1].Status)
	assert.Equal(t, checks.StatusSkipped, report.Stages[2].Status)
}

func TestRoot_ConfigFlagOverridesPositional(t *testing.T) {
	path := writeSite(t, "site_name: Docs\n")
	missing := filepath.Join(t.TempDir(), "other.yml")

	stdout, _, err := runRoot(t, missing, "--config", path, "--loader", "schema", "--skip-build", "--skip-serve")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Config OK: "+path)
}

func TestRoot_StrictFlag(t *testing.T) {
	path := writeSite(t, "{}\n")

	_, _, err := runRoot(t, path, "--strict", "--loader", "schema")
	res := checkFailure(t, err)
	assert.Equal(t, checks.KindMissingRequiredField, res.Kind)
}

func TestRoot_BuildAndServe(t *testing.T) {
	mkdocs := fakeMkDocs(t, `case "$1" in
build) exit 0 ;;
serve) exec sleep 30 ;;
esac
exit 2
`)
	path := writeSite(t, "site_name: Docs\n")
	junit := filepath.Join(t.TempDir(), "mkcheck.xml")

	stdout, stderr, err := runRoot(t, path,
		"--loader", "schema",
		"--mkdocs", mkdocs,
		"--startup-window", "100ms",
		"--shutdown-grace", "2s",
		"--junit", junit)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Config OK: "+path)
	assert.Contains(t, stderr, "Building the documentation...")
	assert.Contains(t, stderr, "Trying to start the server...")

	data, err := os.ReadFile(junit)
	require.NoError(t, err)
	var suites reporting.JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &suites))
	assert.Equal(t, 5, suites.Tests)
	assert.Zero(t, suites.Failures)
}

func TestRoot_BuildFailureMarkdown(t *testing.T) {
	mkdocs := fakeMkDocs(t, `echo "ERROR - Config value 'nav': bad entry" >&2
exit 1
`)
	path := writeSite(t, "site_name: Docs\n")

	stdout, _, err := runRoot(t, path, "--loader", "schema", "--mkdocs", mkdocs, "--format", "markdown")
	res := checkFailure(t, err)
	assert.Equal(t, checks.KindBuildError, res.Kind)
	assert.Contains(t, stdout, "❌ Failed")
	assert.Contains(t, stdout, "### Error building the documentation")
	assert.Contains(t, stdout, "Config value 'nav': bad entry")
}

func TestRoot_InvalidFlags(t *testing.T) {
	path := writeSite(t, "site_name: Docs\n")

	_, _, err := runRoot(t, path, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'format' must be one of [text json markdown]")
	assert.Equal(t, ExitError, exitCode(err))

	_, _, err = runRoot(t, path, "--loader", "magic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'loader' must be one of [schema generator both]")
}

func TestRoot_TooManyArgs(t *testing.T) {
	_, _, err := runRoot(t, "a.yml", "b.yml")
	require.Error(t, err)
	assert.Equal(t, ExitError, exitCode(err))
}

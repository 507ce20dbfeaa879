package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spboyer/mkcheck/internal/checks"
	"github.com/spboyer/mkcheck/internal/reporting"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type jsonStage struct {
	Name       checks.StageName   `json:"name"`
	Status     checks.StageStatus `json:"status"`
	DurationMs int64              `json:"duration_ms"`
}

type jsonReport struct {
	Path     string      `json:"path"`
	Kind     checks.Kind `json:"kind"`
	ExitCode int         `json:"exit_code"`
	Stage    string      `json:"stage,omitempty"`
	Error    string      `json:"error,omitempty"`
	Message  string      `json:"message,omitempty"`
	Warnings []string    `json:"warnings"`
	Stages   []jsonStage `json:"stages"`
	Runtime  string      `json:"runtime"`
}

func writeReport(w io.Writer, res *checks.Result, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newJSONReport(res))
	case formatMarkdown:
		_, err := io.WriteString(w, FormatGitHubComment(res))
		return err
	default:
		_, err := io.WriteString(w, reporting.FormatSummaryReport(res))
		return err
	}
}

func newJSONReport(res *checks.Result) jsonReport {
	report := jsonReport{
		Path:     res.Path,
		Kind:     res.Kind,
		ExitCode: res.ExitCode(),
		Stage:    res.Stage,
		Message:  res.Message,
		Warnings: res.Warnings,
		Runtime:  checks.RuntimeIdentity(),
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	if res.Err != nil {
		report.Error = res.Err.Error()
	}
	for _, s := range res.Stages {
		report.Stages = append(report.Stages, jsonStage{
			Name:       s.Name,
			Status:     s.Status,
			DurationMs: s.Duration.Milliseconds(),
		})
	}
	return report
}

// formatDuration formats a duration in a consistent, human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

// FormatGitHubComment formats a check result as a markdown comment for GitHub PRs.
func FormatGitHubComment(res *checks.Result) string {
	var b strings.Builder

	b.WriteString("## 📘 mkcheck\n\n")

	statusIcon := "✅ Passed"
	if !res.OK() {
		statusIcon = "❌ Failed"
	}

	var total time.Duration
	for _, s := range res.Stages {
		total += s.Duration
	}

	b.WriteString(fmt.Sprintf("**Config:** `%s` | **Status:** %s | **Duration:** %s\n\n",
		res.Path, statusIcon, formatDuration(total)))

	b.WriteString("| Stage | Status | Duration |\n")
	b.WriteString("|-------|--------|----------|\n")
	for _, s := range res.Stages {
		duration := formatDuration(s.Duration)
		if s.Status == checks.StatusSkipped {
			duration = "—"
		}
		b.WriteString(fmt.Sprintf("| %s | %s %s | %s |\n", s.Name, reporting.StatusIcon(s.Status), s.Status, duration))
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n### ⚠️ Warnings\n\n")
		for _, w := range res.Warnings {
			b.WriteString(fmt.Sprintf("- %s\n", w))
		}
	}

	if !res.OK() {
		b.WriteString(fmt.Sprintf("\n### %s\n\n", res.Stage))
		b.WriteString("<details>\n<summary>Diagnostic</summary>\n\n```\n")
		b.WriteString(strings.TrimRight(res.Message, "\n"))
		b.WriteString("\n```\n\n</details>\n")
		if hint := reporting.InterpretKind(res.Kind); hint != "" {
			b.WriteString(fmt.Sprintf("\n> %s\n", hint))
		}
	}

	return b.String()
}

package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spboyer/mkcheck/internal/checks"
)

// InterpretKind returns a plain-language next step for a check outcome.
func InterpretKind(kind checks.Kind) string {
	switch kind {
	case checks.KindSuccess:
		return "The configuration is ready for the build pipeline."
	case checks.KindMissingFile:
		return "Pass the configuration path as an argument or with --config."
	case checks.KindParseError:
		return "Fix the YAML syntax at the reported position. Nothing else was checked."
	case checks.KindMissingRequiredField:
		return "Add a top-level site_name entry."
	case checks.KindSchemaValidationError:
		return "Correct the reported settings. See https://www.mkdocs.org/user-guide/configuration/"
	case checks.KindBuildError:
		return "Run the build command on its own to see the complete generator output."
	case checks.KindServeError:
		return "Check that dev_addr is free and that every plugin loads under serve."
	default:
		return ""
	}
}

// StatusIcon returns the glyph shown for a stage status.
func StatusIcon(status checks.StageStatus) string {
	switch status {
	case checks.StatusPassed:
		return "✅"
	case checks.StatusWarning:
		return "⚠️"
	case checks.StatusFailed:
		return "❌"
	default:
		return "—"
	}
}

// FormatSummaryReport produces the plain-text report for a check run.
func FormatSummaryReport(res *checks.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Checking %s\n\n", res.Path)

	nameWidth := 0
	for _, s := range res.Stages {
		nameWidth = max(nameWidth, runewidth.StringWidth(string(s.Name)))
	}
	for _, s := range res.Stages {
		detail := formatDuration(s.Duration)
		if s.Status == checks.StatusSkipped {
			detail = "skipped"
		}
		fmt.Fprintf(&b, "  %s  %s  %s\n", padRight(StatusIcon(s.Status), 2), padRight(string(s.Name), nameWidth), detail)
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	if !res.OK() {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(res.Message, "\n"))
		b.WriteString("\n")
		if hint := InterpretKind(res.Kind); hint != "" {
			fmt.Fprintf(&b, "\nHint: %s\n", hint)
		}
		fmt.Fprintf(&b, "\nConfig check failed: %s (%s)\n", res.Path, res.Kind)
		return b.String()
	}

	fmt.Fprintf(&b, "\nConfig OK: %s\n", res.Path)
	return b.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

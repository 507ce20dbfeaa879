package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/mkcheck/internal/checks"
	"github.com/spboyer/mkcheck/internal/generator"
	"github.com/spboyer/mkcheck/internal/projectconfig"
	"github.com/spboyer/mkcheck/internal/reporting"
	"github.com/spboyer/mkcheck/internal/siteconfig"
	"github.com/spboyer/mkcheck/internal/spinner"
	"github.com/spboyer/mkcheck/internal/utils"
	"github.com/spboyer/mkcheck/internal/validation"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootFlags struct {
	config        string
	generateBuild bool
	strict        bool
	skipBuild     bool
	skipServe     bool
	loader        string
	mkdocs        string
	python        string
	startupWindow time.Duration
	shutdownGrace time.Duration
	buildTimeout  time.Duration
	probeURL      string
	format        string
	junit         string
	debug         bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mkcheck [config]",
		Short: "mkcheck - pre-flight checks for MkDocs configuration files",
		Long: `mkcheck validates an MkDocs configuration file before it reaches a build pipeline.

It confirms the file exists, parses as YAML, declares site_name and loads under
the MkDocs configuration loader. It then runs a full build into a temporary
directory and checks that the development server starts.

The config path is taken from --config, then the positional argument, then the
"config" key of .mkcheck.yaml, and defaults to mkdocs.yml.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.config, "config", "c", "", "Configuration file (overrides the positional argument)")
	f.BoolVar(&flags.generateBuild, "generate-build", false, "Build into the configured site_dir instead of a temporary directory")
	f.BoolVar(&flags.strict, "strict", false, "Fail when site_name is missing instead of warning")
	f.BoolVar(&flags.skipBuild, "skip-build", false, "Skip the build check")
	f.BoolVar(&flags.skipServe, "skip-serve", false, "Skip the server startup check")
	f.StringVar(&flags.loader, "loader", projectconfig.DefaultLoader, "Configuration loader: schema, generator or both")
	f.StringVar(&flags.mkdocs, "mkdocs", projectconfig.DefaultMkDocs, "MkDocs command, split on spaces (e.g. \"python3 -m mkdocs\")")
	f.StringVar(&flags.python, "python", projectconfig.DefaultPython, "Python interpreter used by the generator loader")
	f.DurationVar(&flags.startupWindow, "startup-window", projectconfig.DefaultServeStartupWindow, "How long the server must stay up")
	f.DurationVar(&flags.shutdownGrace, "shutdown-grace", projectconfig.DefaultServeShutdownGrace, "How long the server gets to exit before it is killed")
	f.DurationVar(&flags.buildTimeout, "build-timeout", projectconfig.DefaultBuildTimeout, "Build deadline (0 for none)")
	f.StringVar(&flags.probeURL, "probe-url", "", "URL that must answer before the server counts as started")
	f.StringVar(&flags.format, "format", projectconfig.DefaultOutputFormat, "Report format: text, json or markdown")
	f.StringVar(&flags.junit, "junit", "", "Also write a JUnit XML report to this file")

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if flags.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	return cmd
}

func execute(ctx context.Context) error {
	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}

func runCheck(cmd *cobra.Command, flags *rootFlags, args []string) error {
	settings, err := projectconfig.Load(".")
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, flags, settings); err != nil {
		return err
	}

	path := resolveConfigPath(cmd, flags, args, settings)
	slog.Debug("resolved settings",
		"config", path,
		"settings_file", settings.Source,
		"loader", settings.Loader,
		"mkdocs", settings.MkDocs,
		"policy", settings.RequiredFieldPolicy)

	loader, err := siteconfig.NewLoader(siteconfig.Mode(settings.Loader), settings.Python)
	if err != nil {
		return err
	}

	progress := cmd.ErrOrStderr()
	runner := &generator.ExecRunner{Command: settings.MkDocs}
	if flags.debug {
		runner.Stdout = progress
		runner.Stderr = progress
	}

	checker := checks.New(loader, runner, checks.Options{
		ConfigPath:    path,
		GenerateBuild: flags.generateBuild,
		RequiredField: checks.FieldPolicy(settings.RequiredFieldPolicy),
		SkipBuild:     flags.skipBuild,
		SkipServe:     flags.skipServe,
		BuildTimeout:  settings.Build.Timeout,
		StartupWindow: settings.Serve.StartupWindow,
		ShutdownGrace: settings.Serve.ShutdownGrace,
		ProbeURL:      settings.Serve.ProbeURL,
		PollInterval:  settings.Serve.PollInterval,
	}, progress)
	if settings.Output.Format == formatText {
		checker.Spinner = spinner.For(progress)
	}

	started := time.Now()
	res := checker.Run(cmd.Context())

	if err := writeReport(cmd.OutOrStdout(), res, settings.Output.Format); err != nil {
		return err
	}
	if settings.Output.JUnit != "" {
		if err := reporting.WriteJUnitXML(res, started, settings.Output.JUnit); err != nil {
			return fmt.Errorf("writing JUnit report: %w", err)
		}
	}

	if !res.OK() {
		return &CheckFailedError{Result: res}
	}
	return nil
}

// applyFlags overlays explicitly set flags onto the loaded settings.
func applyFlags(cmd *cobra.Command, flags *rootFlags, settings *projectconfig.Settings) error {
	changed := cmd.Flags().Changed

	if flags.strict {
		settings.RequiredFieldPolicy = string(checks.PolicyStrict)
	}
	if changed("loader") {
		settings.Loader = flags.loader
	}
	if changed("mkdocs") {
		settings.MkDocs = strings.Fields(flags.mkdocs)
	}
	if changed("python") {
		settings.Python = flags.python
	}
	if changed("startup-window") {
		settings.Serve.StartupWindow = flags.startupWindow
	}
	if changed("shutdown-grace") {
		settings.Serve.ShutdownGrace = flags.shutdownGrace
	}
	if changed("build-timeout") {
		settings.Build.Timeout = flags.buildTimeout
	}
	if changed("probe-url") {
		settings.Serve.ProbeURL = flags.probeURL
	}
	if changed("format") {
		settings.Output.Format = flags.format
	}
	if changed("junit") {
		settings.Output.JUnit = flags.junit
	}

	if err := validation.ValidateStruct(settings); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// resolveConfigPath picks --config, then the positional argument, then the
// settings file's config key (relative to that file).
func resolveConfigPath(cmd *cobra.Command, flags *rootFlags, args []string, settings *projectconfig.Settings) string {
	switch {
	case cmd.Flags().Changed("config"):
		return flags.config
	case len(args) > 0:
		return args[0]
	case settings.Source != "":
		return utils.ResolvePath(settings.Config, filepath.Dir(settings.Source))
	default:
		return settings.Config
	}
}

// Package checks runs the pre-flight pipeline over a site configuration
// file: existence, raw parse, configuration loading, build and serve.
package checks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/spboyer/mkcheck/internal/generator"
	"github.com/spboyer/mkcheck/internal/siteconfig"
)

//go:generate go tool mockgen -package checks -destination mock_generator_test.go github.com/spboyer/mkcheck/internal/generator Runner
//go:generate go tool mockgen -package checks -destination mock_siteconfig_test.go github.com/spboyer/mkcheck/internal/siteconfig Loader

// FieldPolicy decides what a missing site_name means.
type FieldPolicy string

const (
	// PolicyAdvisory prints a warning and keeps going.
	PolicyAdvisory FieldPolicy = "advisory"
	// PolicyStrict fails the run.
	PolicyStrict FieldPolicy = "strict"
)

// Defaults for zero-valued Options fields.
const (
	DefaultStartupWindow = 5 * time.Second
	DefaultShutdownGrace = 10 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
)

// killTimeout bounds the wait for a killed server to exit.
const killTimeout = 5 * time.Second

// Options controls a check run.
type Options struct {
	ConfigPath string
	// GenerateBuild keeps the build output in the configured site_dir instead
	// of a temporary directory.
	GenerateBuild bool
	RequiredField FieldPolicy
	SkipBuild     bool
	SkipServe     bool
	// BuildTimeout bounds the build. Zero means no deadline.
	BuildTimeout time.Duration
	// StartupWindow is how long the server must stay up.
	StartupWindow time.Duration
	// ShutdownGrace is how long the server gets to exit after a terminate
	// before it is killed.
	ShutdownGrace time.Duration
	// ProbeURL, when set, must answer with a non-error status for the server
	// to count as started.
	ProbeURL     string
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.RequiredField == "" {
		o.RequiredField = PolicyAdvisory
	}
	if o.StartupWindow <= 0 {
		o.StartupWindow = DefaultStartupWindow
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = DefaultShutdownGrace
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Checker runs the pipeline for one configuration file.
type Checker struct {
	loader siteconfig.Loader
	runner generator.Runner
	opts   Options
	out    io.Writer
	client *http.Client

	// Spinner, when set, is started around the build and serve stages.
	Spinner func(message string) (stop func())
}

// New returns a Checker. Progress lines are written to out.
func New(loader siteconfig.Loader, runner generator.Runner, opts Options, out io.Writer) *Checker {
	if out == nil {
		out = io.Discard
	}
	return &Checker{
		loader: loader,
		runner: runner,
		opts:   opts.withDefaults(),
		out:    out,
		client: &http.Client{Timeout: 2 * time.Second},
	}
}

// Run executes every stage in order and stops at the first failure.
// Run never returns nil.
func (c *Checker) Run(ctx context.Context) *Result {
	res := &Result{Kind: KindSuccess, Path: c.opts.ConfigPath}
	defer res.skipRemaining()

	path := c.opts.ConfigPath

	if err := c.stage(res, StageExists, func() error { return checkExists(path) }); err != nil {
		c.fail(res, KindMissingFile, DescMissingFile, err)
		return res
	}

	var doc map[string]any
	err := c.stage(res, StageParse, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err = siteconfig.ParseRaw(data)
		return err
	})
	if err != nil {
		c.fail(res, KindParseError, DescParse, err)
		return res
	}

	if !siteconfig.HasRequiredField(doc) {
		msg := siteconfig.MissingFieldMessage(path)
		if c.opts.RequiredField == PolicyStrict {
			res.setLastStatus(StatusFailed)
			res.Kind = KindMissingRequiredField
			res.Stage = DescMissingField
			res.Message = msg
			res.Err = fmt.Errorf("missing required field %q", siteconfig.RequiredField)
			return res
		}
		fmt.Fprintln(c.out, msg) //nolint:errcheck
		res.setLastStatus(StatusWarning)
		res.Warnings = append(res.Warnings, msg)
	}

	if err := c.stage(res, StageLoad, func() error { return c.loader.Load(ctx, path) }); err != nil {
		c.fail(res, KindSchemaValidationError, DescConfiguration, err)
		return res
	}

	if c.opts.SkipBuild {
		res.record(StageBuild, StatusSkipped, 0)
	} else if err := c.stage(res, StageBuild, func() error { return c.build(ctx) }); err != nil {
		c.fail(res, KindBuildError, DescBuild, err)
		return res
	}

	if c.opts.SkipServe {
		res.record(StageServe, StatusSkipped, 0)
	} else if err := c.stage(res, StageServe, func() error { return c.serve(ctx, res) }); err != nil {
		c.fail(res, KindServeError, DescServe, err)
		return res
	}

	return res
}

func (c *Checker) stage(res *Result, name StageName, fn func() error) error {
	slog.Debug("stage started", "stage", name, "path", c.opts.ConfigPath)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	status := StatusPassed
	if err != nil {
		status = StatusFailed
	}
	res.record(name, status, elapsed)
	slog.Debug("stage finished", "stage", name, "status", status, "duration", elapsed)
	return err
}

// fail records the failure of a stage. Loaders and runners wrap their errors
// with a stack at the call boundary; anything else is given the stack of
// Run.
func (c *Checker) fail(res *Result, kind Kind, desc string, err error) {
	var stackErr *goerrors.Error
	if !errors.As(err, &stackErr) {
		err = goerrors.Wrap(err, 1)
	}
	res.Kind = kind
	res.Stage = desc
	res.Err = err
	res.Message = FormatDiagnostic(c.opts.ConfigPath, desc, err)
}

func (c *Checker) progress(msg string) func() {
	fmt.Fprintln(c.out, msg) //nolint:errcheck
	if c.Spinner == nil {
		return func() {}
	}
	return c.Spinner(msg)
}

func checkExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %q does not exist", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("config file %q is a directory", path)
	}
	return nil
}

func (c *Checker) build(ctx context.Context) error {
	stop := c.progress("Building the documentation...")
	defer stop()

	siteDir := ""
	if !c.opts.GenerateBuild {
		dir, err := os.MkdirTemp("", "mkcheck-site-*")
		if err != nil {
			return fmt.Errorf("creating temporary site directory: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("removing temporary site directory", "dir", dir, "error", err)
			}
		}()
		siteDir = dir
	}

	if c.opts.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.BuildTimeout)
		defer cancel()
	}

	return c.runner.Build(ctx, c.opts.ConfigPath, siteDir)
}

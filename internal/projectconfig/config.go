// Package projectconfig provides the Settings struct and loader for
// .mkcheck.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spboyer/mkcheck/internal/validation"
)

// FileName is the project settings file looked up from the working directory.
const FileName = ".mkcheck.yaml"

// EnvPrefix marks environment variables that override settings. A single
// underscore separates levels and a double underscore is a literal one, so
// MKCHECK_SERVE_STARTUP__WINDOW sets serve.startup_window.
const EnvPrefix = "MKCHECK_"

// maxSearchDepth bounds the upward search for FileName.
const maxSearchDepth = 10

// Default values for project settings. These are the single source of
// truth: New() references them and no other code should duplicate them.
const (
	DefaultConfig              = "mkdocs.yml"
	DefaultRequiredFieldPolicy = "advisory"
	DefaultLoader              = "both"
	DefaultPython              = "python3"
	DefaultMkDocs              = "mkdocs"

	DefaultBuildTimeout       = 10 * time.Minute
	DefaultServeStartupWindow = 5 * time.Second
	DefaultServeShutdownGrace = 10 * time.Second
	DefaultServePollInterval  = 250 * time.Millisecond

	DefaultOutputFormat = "text"
)

// BuildSettings holds build stage settings.
type BuildSettings struct {
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// ServeSettings holds serve stage settings.
type ServeSettings struct {
	StartupWindow time.Duration `koanf:"startup_window" validate:"gt=0"`
	ShutdownGrace time.Duration `koanf:"shutdown_grace" validate:"gt=0"`
	ProbeURL      string        `koanf:"probe_url" validate:"omitempty,url"`
	PollInterval  time.Duration `koanf:"poll_interval" validate:"gt=0"`
}

// OutputSettings holds report settings.
type OutputSettings struct {
	Format string `koanf:"format" validate:"oneof=text json markdown"`
	JUnit  string `koanf:"junit"`
}

// Settings is the merged result of defaults, .mkcheck.yaml and the environment.
type Settings struct {
	Config              string         `koanf:"config"`
	RequiredFieldPolicy string         `koanf:"required_field_policy" validate:"oneof=advisory strict"`
	Loader              string         `koanf:"loader" validate:"oneof=schema generator both"`
	Python              string         `koanf:"python" validate:"required"`
	MkDocs              []string       `koanf:"mkdocs" validate:"min=1,dive,required"`
	Build               BuildSettings  `koanf:"build"`
	Serve               ServeSettings  `koanf:"serve"`
	Output              OutputSettings `koanf:"output"`

	// Source is the settings file that was loaded, empty when none was found.
	Source string `koanf:"-"`
}

// New returns Settings with all hard-coded defaults populated.
func New() *Settings {
	return &Settings{
		Config:              DefaultConfig,
		RequiredFieldPolicy: DefaultRequiredFieldPolicy,
		Loader:              DefaultLoader,
		Python:              DefaultPython,
		MkDocs:              []string{DefaultMkDocs},
		Build: BuildSettings{
			Timeout: DefaultBuildTimeout,
		},
		Serve: ServeSettings{
			StartupWindow: DefaultServeStartupWindow,
			ShutdownGrace: DefaultServeShutdownGrace,
			PollInterval:  DefaultServePollInterval,
		},
		Output: OutputSettings{
			Format: DefaultOutputFormat,
		},
	}
}

// Load finds .mkcheck.yaml by walking up from startDir (max 10 levels) and
// layers it and the MKCHECK_ environment over the defaults. A missing file
// is not an error. The merged settings are validated before they are returned.
func Load(startDir string) (*Settings, error) {
	parser := koanf.New(".")

	if err := parser.Load(structs.Provider(New(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading default settings: %w", err)
	}

	source, data, err := findConfigFile(startDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	default:
		if err := parser.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", source, err)
		}
	}

	if err := parser.Load(envProvider(), nil); err != nil {
		return nil, fmt.Errorf("reading %s* environment: %w", EnvPrefix, err)
	}

	settings := &Settings{}
	err = parser.UnmarshalWithConf("", settings, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(" "),
			),
			Result:           settings,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	settings.Source = source

	if err := validation.ValidateStruct(settings); err != nil {
		if source != "" {
			return nil, fmt.Errorf("invalid settings in %s: %w", source, err)
		}
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return settings, nil
}

func envProvider() *env.Env {
	return env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, val string) (string, any) {
			tmp := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", `\:\`)
			tmp = strings.ReplaceAll(tmp, "_", ".")
			return strings.ReplaceAll(tmp, `\:\`, "_"), val
		},
	})
}

// findConfigFile walks up from dir looking for FileName (max 10 levels).
// Returns os.ErrNotExist if no settings file is found. Real I/O errors
// (e.g. permission denied) are propagated.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range maxSearchDepth {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

package siteconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/go-errors/errors"

	"github.com/spboyer/mkcheck/internal/validation"
)

// Loader performs schema and semantic validation of a configuration file.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// Mode selects which loaders run.
type Mode string

const (
	ModeSchema    Mode = "schema"
	ModeGenerator Mode = "generator"
	ModeBoth      Mode = "both"
)

// ConfigurationError lists the problems found while loading a configuration.
type ConfigurationError struct {
	Path     string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid configuration"
	case 1:
		return e.Problems[0]
	default:
		return fmt.Sprintf("%d configuration problems:\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
	}
}

// NewLoader returns the loader for mode. ModeBoth runs the schema loader
// first so that type errors are reported without starting an interpreter.
func NewLoader(mode Mode, python string) (Loader, error) {
	switch mode {
	case ModeSchema:
		return NewSchemaLoader(), nil
	case ModeGenerator:
		return &GeneratorLoader{Python: python}, nil
	case ModeBoth, "":
		return ChainLoader{NewSchemaLoader(), &GeneratorLoader{Python: python}}, nil
	default:
		return nil, fmt.Errorf("unknown loader %q: expected schema, generator or both", mode)
	}
}

// ChainLoader runs loaders in order and stops at the first error.
type ChainLoader []Loader

func (c ChainLoader) Load(ctx context.Context, path string) error {
	for _, l := range c {
		if err := l.Load(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// SchemaLoader validates a configuration without the generator: !ENV tags
// and INHERIT are resolved, the document is checked against the embedded JSON Schema,
// then decoded and checked field by field.
type SchemaLoader struct {
	// LookupEnv resolves !ENV tags. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// NewSchemaLoader creates a [SchemaLoader] that reads the process environment.
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{LookupEnv: os.LookupEnv}
}

func (l *SchemaLoader) Load(_ context.Context, path string) error {
	if _, err := l.LoadConfig(path); err != nil {
		return goerrors.Wrap(err, 0)
	}
	return nil
}

// LoadConfig is Load for callers that need the decoded configuration.
func (l *SchemaLoader) LoadConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	doc, err := decodeWithEnv(data, l.LookupEnv)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Problems: []string{err.Error()}}
	}

	doc, err = resolveInherit(doc, path, l.LookupEnv)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Problems: []string{err.Error()}}
	}

	if errs := validation.ValidateSiteDocument(doc); len(errs) > 0 {
		return nil, &ConfigurationError{Path: path, Problems: errs}
	}

	cfg, err := Decode(doc)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Problems: []string{err.Error()}}
	}

	if problems := cfg.Validate(filepath.Dir(path)); len(problems) > 0 {
		return nil, &ConfigurationError{Path: path, Problems: problems}
	}

	return cfg, nil
}

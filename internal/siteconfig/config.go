package siteconfig

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/mkcheck/internal/utils"
	"github.com/spboyer/mkcheck/internal/validation"
)

// Defaults applied by the generator when a key is omitted.
const (
	DefaultDocsDir = "docs"
	DefaultSiteDir = "site"
	DefaultDevAddr = "127.0.0.1:8000"
)

// SiteConfig is the typed view of the keys the checker validates itself.
// Everything else is kept in Other and left to the generator.
type SiteConfig struct {
	SiteName           string         `mapstructure:"site_name" validate:"required"`
	SiteURL            string         `mapstructure:"site_url" validate:"omitempty,url"`
	RepoURL            string         `mapstructure:"repo_url" validate:"omitempty,url"`
	DocsDir            string         `mapstructure:"docs_dir" validate:"required"`
	SiteDir            string         `mapstructure:"site_dir" validate:"required"`
	DevAddr            string         `mapstructure:"dev_addr" validate:"hostname_port"`
	Strict             bool           `mapstructure:"strict"`
	UseDirectoryURLs   *bool          `mapstructure:"use_directory_urls"`
	Theme              any            `mapstructure:"theme"`
	Nav                []any          `mapstructure:"nav"`
	Plugins            any            `mapstructure:"plugins"`
	MarkdownExtensions any            `mapstructure:"markdown_extensions"`
	ExtraCSS           []string       `mapstructure:"extra_css" validate:"dive,required"`
	Extra              map[string]any `mapstructure:"extra"`
	Other              map[string]any `mapstructure:",remain"`
}

// Decode converts a generic document into a SiteConfig and fills in the
// generator's defaults for omitted directory and address keys.
func Decode(doc map[string]any) (*SiteConfig, error) {
	cfg := &SiteConfig{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  cfg,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(doc); err != nil {
		return nil, err
	}

	if cfg.DocsDir == "" {
		cfg.DocsDir = DefaultDocsDir
	}
	if cfg.SiteDir == "" {
		cfg.SiteDir = DefaultSiteDir
	}
	if cfg.DevAddr == "" {
		cfg.DevAddr = DefaultDevAddr
	}

	return cfg, nil
}

// Validate checks field constraints and the relationship between the
// source and output directories. Relative directories are resolved against
// configDir, the directory holding the configuration file.
func (c *SiteConfig) Validate(configDir string) []string {
	var problems []string

	if err := validation.ValidateStruct(c); err != nil {
		var structErr *validation.StructError
		if errors.As(err, &structErr) {
			problems = append(problems, structErr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}

	docsDir := utils.ResolvePath(c.DocsDir, configDir)
	siteDir := utils.ResolvePath(c.SiteDir, configDir)

	if fi, err := os.Stat(docsDir); err != nil || !fi.IsDir() {
		problems = append(problems, fmt.Sprintf("'docs_dir' %q is not an existing directory", docsDir))
	}

	switch {
	case utils.IsWithin(siteDir, docsDir):
		problems = append(problems, fmt.Sprintf(
			"'docs_dir' should not be within the 'site_dir' (docs_dir: %q, site_dir: %q)", docsDir, siteDir))
	case utils.IsWithin(docsDir, siteDir):
		problems = append(problems, fmt.Sprintf(
			"'site_dir' should not be within the 'docs_dir' (docs_dir: %q, site_dir: %q)", docsDir, siteDir))
	}

	return problems
}

package siteconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSite creates a config file and, unless docsDir is empty, its docs directory.
func writeSite(t *testing.T, content string, docsDir string) string {
	t.Helper()
	dir := t.TempDir()
	if docsDir != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, docsDir), 0o755))
	}
	path := filepath.Join(dir, "mkdocs.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func configProblems(t *testing.T, err error) []string {
	t.Helper()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigurationError, got %T: %v", err, err)
	return cfgErr.Problems
}

func TestSchemaLoader_Valid(t *testing.T) {
	path := writeSite(t, "site_name: \"Docs\"\n", "docs")

	cfg, err := NewSchemaLoader().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Docs", cfg.SiteName)
	assert.Equal(t, DefaultDocsDir, cfg.DocsDir)
	assert.Equal(t, DefaultSiteDir, cfg.SiteDir)
	assert.Equal(t, DefaultDevAddr, cfg.DevAddr)
}

func TestSchemaLoader_KeepsUnknownKeys(t *testing.T) {
	path := writeSite(t, "site_name: Docs\ncopyright: me\nmy_plugin_setting: 3\n", "docs")

	cfg, err := NewSchemaLoader().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Other["my_plugin_setting"])
	assert.Equal(t, "me", cfg.Other["copyright"])
}

func TestSchemaLoader_MissingSiteName(t *testing.T) {
	path := writeSite(t, "{}\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, configProblems(t, err)[0], "site_name")
}

func TestSchemaLoader_SchemaTypeErrors(t *testing.T) {
	path := writeSite(t, "site_name: Docs\nuse_directory_urls: maybe\nextra_css: style.css\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)

	problems := configProblems(t, err)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "/extra_css")
	assert.Contains(t, problems[1], "/use_directory_urls")
}

func TestSchemaLoader_FieldConstraints(t *testing.T) {
	path := writeSite(t, "site_name: Docs\nsite_url: not a url\ndev_addr: localhost\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)

	problems := configProblems(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "'site_url' must be a valid URL", problems[0])
	assert.Equal(t, "'dev_addr' must be an address in host:port form", problems[1])
}

func TestSchemaLoader_MissingDocsDir(t *testing.T) {
	path := writeSite(t, "site_name: Docs\ndocs_dir: content\n", "")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)

	problems := configProblems(t, err)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "'docs_dir'")
	assert.Contains(t, problems[0], "is not an existing directory")
}

func TestSchemaLoader_SiteDirInsideDocsDir(t *testing.T) {
	path := writeSite(t, "site_name: Docs\nsite_dir: docs/site\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, configProblems(t, err)[0], "'site_dir' should not be within the 'docs_dir'")
}

func TestSchemaLoader_DocsDirInsideSiteDir(t *testing.T) {
	path := writeSite(t, "site_name: Docs\nsite_dir: .\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, configProblems(t, err)[0], "'docs_dir' should not be within the 'site_dir'")
}

func TestSchemaLoader_ResolvesEnvTags(t *testing.T) {
	path := writeSite(t, "site_name: !ENV [MKCHECK_TEST_SITE_NAME, Fallback]\nsite_url: !ENV MKCHECK_TEST_SITE_URL\n", "docs")

	loader := &SchemaLoader{LookupEnv: lookupFrom(map[string]string{"MKCHECK_TEST_SITE_URL": "https://docs.example.com/"})}
	cfg, err := loader.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Fallback", cfg.SiteName)
	assert.Equal(t, "https://docs.example.com/", cfg.SiteURL)
}

func TestSchemaLoader_InheritSuppliesRequiredField(t *testing.T) {
	path := writeSite(t, "INHERIT: base.yml\n", "docs")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "base.yml"), []byte("site_name: Parent\n"), 0o644))

	cfg, err := NewSchemaLoader().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Parent", cfg.SiteName)
	assert.NotContains(t, cfg.Other, "INHERIT")
}

func TestSchemaLoader_InheritMergesMappings(t *testing.T) {
	path := writeSite(t, `INHERIT: ../shared/base.yml
site_name: Child
extra:
  version: 2
  social: [github]
`, "docs")
	shared := filepath.Join(filepath.Dir(path), "..", "shared")
	require.NoError(t, os.MkdirAll(shared, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(shared, "base.yml"), []byte(`INHERIT: root.yml
site_name: Parent
site_url: https://docs.example.com/
extra:
  version: 1
  social: [mastodon, rss]
  analytics: enabled
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(shared, "root.yml"), []byte("repo_url: https://example.com/repo\n"), 0o644))

	cfg, err := NewSchemaLoader().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Child", cfg.SiteName)
	assert.Equal(t, "https://docs.example.com/", cfg.SiteURL)
	assert.Equal(t, "https://example.com/repo", cfg.RepoURL)
	assert.Equal(t, map[string]any{
		"version":   2,
		"social":    []any{"github"},
		"analytics": "enabled",
	}, cfg.Extra)
}

func TestSchemaLoader_InheritMissingParent(t *testing.T) {
	path := writeSite(t, "INHERIT: nowhere.yml\nsite_name: Docs\n", "docs")

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, configProblems(t, err)[0], "nowhere.yml does not exist")
}

func TestSchemaLoader_InheritCycle(t *testing.T) {
	path := writeSite(t, "INHERIT: base.yml\n", "docs")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "base.yml"), []byte("INHERIT: mkdocs.yml\nsite_name: Loop\n"), 0o644))

	err := NewSchemaLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, configProblems(t, err)[0], "INHERIT cycle")
}

func TestSchemaLoader_UnreadableFile(t *testing.T) {
	err := NewSchemaLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestConfigurationError_Error(t *testing.T) {
	assert.Equal(t, "invalid configuration", (&ConfigurationError{}).Error())
	assert.Equal(t, "one", (&ConfigurationError{Problems: []string{"one"}}).Error())
	assert.Equal(t, "2 configuration problems:\n  - one\n  - two",
		(&ConfigurationError{Problems: []string{"one", "two"}}).Error())
}

type recordingLoader struct {
	calls *[]string
	name  string
	err   error
}

func (r recordingLoader) Load(_ context.Context, _ string) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestChainLoader_StopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	chain := ChainLoader{
		recordingLoader{calls: &calls, name: "first"},
		recordingLoader{calls: &calls, name: "second", err: boom},
		recordingLoader{calls: &calls, name: "third"},
	}

	err := chain.Load(context.Background(), "mkdocs.yml")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNewLoader(t *testing.T) {
	l, err := NewLoader(ModeSchema, "")
	require.NoError(t, err)
	assert.IsType(t, &SchemaLoader{}, l)

	l, err = NewLoader(ModeGenerator, "python3.12")
	require.NoError(t, err)
	require.IsType(t, &GeneratorLoader{}, l)
	assert.Equal(t, "python3.12", l.(*GeneratorLoader).Python)

	l, err = NewLoader(ModeBoth, "")
	require.NoError(t, err)
	chain, ok := l.(ChainLoader)
	require.True(t, ok)
	assert.Len(t, chain, 2)

	_, err = NewLoader("sideways", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown loader")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  title: Modeling Tutorials
  author: The Docs Team
content:
  dir: testdata/content
reference:
  packages:
    - name: recipes
      base_url: https://recipes.example.org
  filter: "^step_"
execution:
  command: ["Rscript", "-"]
  timeout: 5m
output:
  directory: ./out
  clean: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Modeling Tutorials", cfg.Site.Title)
	assert.Equal(t, "testdata/content", cfg.Content.Dir)
	assert.Equal(t, "^step_", cfg.Reference.Filter)
	assert.Equal(t, []string{"Rscript", "-"}, cfg.Execution.Command)
	assert.Equal(t, 5*time.Minute, cfg.Execution.Timeout)
	assert.True(t, cfg.Output.Clean)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, sgerrors.IsCategory(err, sgerrors.CategoryConfig))
}

func TestLoad_MissingTitleNamesField(t *testing.T) {
	path := writeConfig(t, "output:\n  directory: ./out\n")

	_, err := Load(path)
	require.Error(t, err)
	be, ok := err.(*sgerrors.BuildError)
	require.True(t, ok)
	assert.Equal(t, "site.title", be.Context["field"])
}

func TestLoad_InvalidFilterRegexp(t *testing.T) {
	path := writeConfig(t, `
site:
  title: T
reference:
  filter: "("
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, sgerrors.IsCategory(err, sgerrors.CategoryValidation))
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "site:\n  title: T\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.Content.Dir)
	assert.Equal(t, "./site", cfg.Output.Directory)
	assert.Equal(t, 4, cfg.Reference.FetchConcurrency)
	assert.Equal(t, ":8080", cfg.Preview.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvOutputDir, "/tmp/override-out")
	path := writeConfig(t, "site:\n  title: T\noutput:\n  directory: ./out\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override-out", cfg.Output.Directory)
}

func TestLoad_PackageWithoutBaseURLNamesField(t *testing.T) {
	path := writeConfig(t, `
site:
  title: T
reference:
  packages:
    - name: recipes
`)

	_, err := Load(path)
	require.Error(t, err)
	be, ok := err.(*sgerrors.BuildError)
	require.True(t, ok)
	assert.Equal(t, "reference.packages[0].base_url", be.Context["field"])
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Site.Title)
	assert.NotEmpty(t, cfg.Reference.Packages)
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

package build

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

const parsnipIndex = `<!DOCTYPE html>
<html><body>
<table>
<tr><td><a href="linear_reg.html"><code>linear_reg()</code></a></td><td><p>Linear regression</p></td></tr>
<tr><td><a href="rand_forest.html"><code>rand_forest()</code></a></td><td><p>Random forest</p></td></tr>
</table>
</body></html>`

func writeArticle(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testConfig(t *testing.T, indexURL string) *config.Config {
	t.Helper()
	contentDir := t.TempDir()
	writeArticle(t, contentDir, "start/models.md", `---
title: Build a model
weight: 1
description: Fit your first model
tags: [parsnip]
---

# Introduction

Prose only.
`)

	cfg := &config.Config{
		Site:    config.SiteConfig{Title: "Tutorials", Author: "Team"},
		Content: config.ContentConfig{Dir: contentDir},
		Output:  config.OutputConfig{Directory: filepath.Join(t.TempDir(), "site")},
	}
	if indexURL != "" {
		cfg.Reference.Packages = []config.Package{{Name: "parsnip", BaseURL: indexURL}}
	}
	return cfg
}

func TestRunBuildsSiteAndReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, parsnipIndex)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, 1, report.Articles)
	assert.Equal(t, 1, report.Packages)
	assert.Zero(t, report.FailedPackages)
	assert.Equal(t, 1, report.Tables)
	assert.Contains(t, report.StageDurations, StageExtract)
	assert.Contains(t, report.StageDurations, StageWrite)

	out := cfg.Output.Directory
	assert.FileExists(t, filepath.Join(out, "start", "models", "index.html"))
	assert.FileExists(t, filepath.Join(out, "reference", "functions", "index.html"))
	assert.FileExists(t, filepath.Join(out, "tags", "parsnip", "index.html"))
	assert.FileExists(t, filepath.Join(out, "index.html"))

	data, err := os.ReadFile(filepath.Join(out, "build-report.json"))
	require.NoError(t, err)
	var onDisk Report
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, report.BuildID, onDisk.BuildID)
	assert.Equal(t, OutcomeSuccess, onDisk.Outcome)
}

func TestRunWithoutReferencePackages(t *testing.T) {
	cfg := testConfig(t, "")
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Zero(t, report.Tables)
	assert.NotContains(t, report.StageDurations, StageExtract)
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "start", "models", "index.html"))
}

func TestRunAggregatesArticleFailures(t *testing.T) {
	cfg := testConfig(t, "")
	writeArticle(t, cfg.Content.Dir, "start/broken.md", `---
weight: 2
description: missing a title
---
body
`)

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{})
	require.Error(t, err)

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 1, report.FailedArticles)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "title")

	// The good article still builds.
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "start", "models", "index.html"))
}

func TestRunFailedPackageIsPartialNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{})
	require.Error(t, err)

	var be *sgerrors.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, sgerrors.CategorySource, be.Category)
	assert.Equal(t, "parsnip", be.Context["package"])

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 1, report.FailedPackages)
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "start", "models", "index.html"))
}

func TestRunSectionFilter(t *testing.T) {
	cfg := testConfig(t, "")
	writeArticle(t, cfg.Content.Dir, "learn/tuning.md", `---
title: Tune a model
weight: 1
description: Tuning
---
body
`)

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{Section: "learn"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Articles)
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "learn", "tuning", "index.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "start", "models", "index.html"))
}

func TestRunInvalidFilterRejectedAtConstruction(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Reference.Filter = "("

	_, err := NewBuilder(cfg)
	require.Error(t, err)

	var be *sgerrors.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, sgerrors.CategoryValidation, be.Category)
}

func TestRunCodeWithoutInterpreterIsPartialNotFatal(t *testing.T) {
	cfg := testConfig(t, "")
	writeArticle(t, cfg.Content.Dir, "start/recipes.md", `---
title: Preprocess your data
weight: 2
description: Feature engineering steps
---

`+"```{r demo}\nx <- 1\n```\n")

	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	report, err := b.Run(context.Background(), Options{})
	require.Error(t, err)

	var be *sgerrors.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, sgerrors.CategoryExecution, be.Category)
	assert.Contains(t, be.Error(), "no execution command configured")

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 1, report.FailedArticles)

	// The prose-only article still builds; the failed one produces no page.
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "start", "models", "index.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "start", "recipes", "index.html"))
}

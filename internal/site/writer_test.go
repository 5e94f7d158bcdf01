package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

func TestWriterWritesPagesAndAssets(t *testing.T) {
	a, err := NewAssembler(testSiteConfig(), t.TempDir())
	require.NoError(t, err)

	ra := renderedArticle("start", "models", 1, frontmatter.Fields{Title: "Models"})
	ra.Figures = map[string][]byte{"figure-1.png": []byte("png")}
	ra.Blocks = append(ra.Blocks, render.Block{Kind: render.BlockFigure, HTML: `<img src="figure-1.png">`})

	s, err := a.Assemble([]*render.RenderedArticle{ra}, nil)
	require.NoError(t, err)

	out := t.TempDir()
	w := &Writer{Dir: out}
	require.NoError(t, w.Write(a, s))

	index, err := os.ReadFile(filepath.Join(out, "start", "models", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Models</h1>")

	figure, err := os.ReadFile(filepath.Join(out, "start", "models", "figure-1.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), figure)

	// Home page lands at the output root.
	_, err = os.Stat(filepath.Join(out, "index.html"))
	require.NoError(t, err)

	// Shared static assets are written once.
	_, err = os.Stat(filepath.Join(out, "assets", "site.css"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "assets", "tables.js"))
	require.NoError(t, err)
}

func TestWriterCleanRemovesStaleOutput(t *testing.T) {
	a, err := NewAssembler(testSiteConfig(), t.TempDir())
	require.NoError(t, err)

	s, err := a.Assemble([]*render.RenderedArticle{
		renderedArticle("start", "models", 1, frontmatter.Fields{Title: "Models"}),
	}, nil)
	require.NoError(t, err)

	out := t.TempDir()
	stale := filepath.Join(out, "old-section", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	w := &Writer{Dir: out, Clean: true}
	require.NoError(t, w.Write(a, s))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(out, "start", "models", "index.html"))
	require.NoError(t, err)
}

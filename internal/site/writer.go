package site

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Writer materializes an assembled site on disk. Every page becomes
// <url>/index.html under the output directory, with its assets next to it.
type Writer struct {
	Dir   string
	Clean bool
}

// Write renders all pages through the assembler's layout and writes them out
// together with the shared static assets.
func (w *Writer) Write(a *Assembler, s *Site) error {
	if w.Clean {
		if err := os.RemoveAll(w.Dir); err != nil {
			return sgerrors.WriteError(w.Dir, err)
		}
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return sgerrors.WriteError(w.Dir, err)
	}
	if err := w.writeStaticAssets(); err != nil {
		return err
	}

	for _, page := range s.Pages {
		if err := w.writePage(a, s, page); err != nil {
			return err
		}
	}

	slog.Info("Site written", slog.Int("pages", len(s.Pages)), logfields.Path(w.Dir))
	return nil
}

func (w *Writer) writePage(a *Assembler, s *Site, page *Page) error {
	dir := filepath.Join(w.Dir, filepath.FromSlash(strings.Trim(page.URL, "/")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sgerrors.WriteError(dir, err)
	}

	var buf bytes.Buffer
	if err := a.RenderPage(&buf, s, page); err != nil {
		return sgerrors.AssemblyError(page.URL, err)
	}
	index := filepath.Join(dir, "index.html")
	if err := os.WriteFile(index, buf.Bytes(), 0o644); err != nil {
		return sgerrors.WriteError(index, err)
	}

	for rel, data := range page.Assets {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return sgerrors.WriteError(target, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return sgerrors.WriteError(target, err)
		}
	}
	return nil
}

func (w *Writer) writeStaticAssets() error {
	return fs.WalkDir(assetFS, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := assetFS.ReadFile(path)
		if err != nil {
			return sgerrors.WriteError(path, err)
		}
		target := filepath.Join(w.Dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return sgerrors.WriteError(target, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return sgerrors.WriteError(target, err)
		}
		return nil
	})
}

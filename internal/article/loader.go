package article

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Loader discovers and parses article source files under a content root.
// Layout: one subdirectory per section, articles as .md or .Rmd files.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at the content directory.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// LoadAll parses every article under the content root. Per-article parse
// failures are collected into the aggregate; successfully parsed articles are
// still returned so one bad document does not hide the rest of the build.
// Section filters the walk to a single section when non-empty.
func (l *Loader) LoadAll(section string) ([]*Article, *sgerrors.Aggregate) {
	agg := sgerrors.NewAggregate()
	var articles []*Article

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isArticleFile(path) {
			return nil
		}

		rel, relErr := filepath.Rel(l.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if section != "" && sectionOf(rel) != section {
			return nil
		}

		a, loadErr := l.loadOne(path, rel)
		if loadErr != nil {
			agg.Add(loadErr)
			return nil
		}
		if a.Meta.Draft {
			slog.Debug("Skipping draft article", logfields.Article(rel))
			return nil
		}
		articles = append(articles, a)
		return nil
	})
	if err != nil {
		agg.Add(sgerrors.Wrap(err, sgerrors.CategoryFileSystem, sgerrors.SeverityFatal, "content walk failed").
			WithContext("root", l.root))
	}

	// Deterministic order regardless of filesystem enumeration: by section,
	// then weight, then path.
	sort.Slice(articles, func(i, j int) bool {
		if articles[i].Section != articles[j].Section {
			return articles[i].Section < articles[j].Section
		}
		if articles[i].Meta.Weight != articles[j].Meta.Weight {
			return articles[i].Meta.Weight < articles[j].Meta.Weight
		}
		return articles[i].Path < articles[j].Path
	})

	slog.Info("Articles loaded", slog.Int("count", len(articles)), slog.Int("failed", agg.Len()))
	return articles, agg
}

func (l *Loader) loadOne(path, rel string) (*Article, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- paths come from walking the configured content root
	if err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryFileSystem, sgerrors.SeverityFatal, "failed to read article").
			WithContext("document", rel)
	}

	raw, body, had, err := frontmatter.Split(content)
	if err != nil || !had {
		field := "front matter"
		return nil, sgerrors.MalformedFrontMatter(rel, field)
	}

	fields, err := frontmatter.Decode(raw)
	if err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryFrontMatter, sgerrors.SeverityFatal, "malformed front matter").
			WithContext("document", rel)
	}
	if missing := fields.MissingField(); missing != "" {
		return nil, sgerrors.MalformedFrontMatter(rel, missing)
	}

	segments, err := SegmentBody(body)
	if err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryValidation, sgerrors.SeverityFatal, "failed to segment article body").
			WithContext("document", rel)
	}

	return &Article{
		Path:     rel,
		Section:  sectionOf(rel),
		Slug:     slugOf(rel),
		Meta:     *fields,
		Segments: segments,
	}, nil
}

func isArticleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".rmd", ".markdown":
		return true
	}
	return false
}

func sectionOf(rel string) string {
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

func slugOf(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Package refdocs resolves the published documentation index of external
// reference packages into normalized reference entries.
package refdocs

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Entry is one exported symbol from a package's documentation index.
type Entry struct {
	Name    string // exported symbol name, e.g. "step_date"
	Package string // source package name
	Title   string // short description from the index
	URL     string // absolute documentation URL
}

// Extractor fetches and filters package documentation indexes.
type Extractor struct {
	client      *http.Client
	filter      *regexp.Regexp
	concurrency int
	recorder    metrics.Recorder
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithConcurrency caps parallel index fetches.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRecorder forwards per-package fetch timings to a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(e *Extractor) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// NewExtractor creates an extractor. filter may be nil to retain all symbols.
func NewExtractor(filter *regexp.Regexp, opts ...Option) *Extractor {
	e := &Extractor{
		client:      newHTTPClient(),
		filter:      filter,
		concurrency: 4,
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// Extract resolves every package's documentation index and returns the
// matching entries, preserving the configured package order and each index's
// row order. Packages whose index cannot be resolved contribute a
// SourceUnavailable failure to the aggregate; entries from the remaining
// packages are still returned so their tables can build.
func (e *Extractor) Extract(ctx context.Context, pkgs []config.Package) ([]Entry, *sgerrors.Aggregate) {
	agg := sgerrors.NewAggregate()
	perPkg := make([][]Entry, len(pkgs))
	errs := make([]error, len(pkgs))

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	for i, pkg := range pkgs {
		wg.Add(1)
		go func(i int, pkg config.Package) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			started := time.Now()
			entries, err := e.extractOne(ctx, pkg)
			e.recorder.ObserveFetchDuration(pkg.Name, time.Since(started), err == nil)
			if err != nil {
				errs[i] = err
				slog.Warn("Reference index fetch failed", logfields.Package(pkg.Name), logfields.Error(err))
				return
			}
			perPkg[i] = entries
			slog.Debug("Reference index fetched",
				logfields.Package(pkg.Name),
				slog.Int("entries", len(entries)),
				logfields.DurationMS(float64(time.Since(started).Milliseconds())))
		}(i, pkg)
	}
	wg.Wait()

	var out []Entry
	for i := range pkgs {
		if errs[i] != nil {
			agg.Add(errs[i])
			continue
		}
		out = append(out, perPkg[i]...)
	}
	return out, agg
}

func (e *Extractor) extractOne(ctx context.Context, pkg config.Package) ([]Entry, error) {
	indexURL, err := referenceIndexURL(pkg.BaseURL)
	if err != nil {
		return nil, sgerrors.SourceUnavailable(pkg.Name, err)
	}

	body, err := fetchHTML(ctx, indexURL, e.client)
	if err != nil {
		return nil, sgerrors.SourceUnavailable(pkg.Name, err)
	}

	entries, err := parseReferenceIndex(pkg, body)
	if err != nil {
		return nil, sgerrors.SourceUnavailable(pkg.Name, err)
	}

	if e.filter == nil {
		return entries, nil
	}
	filtered := entries[:0]
	for _, entry := range entries {
		if e.filter.MatchString(entry.Name) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// SortedNames returns the distinct entry names in sorted order. Used by
// catalog summaries and tests.
func SortedNames(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	var names []string
	for _, e := range entries {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

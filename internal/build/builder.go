// Package build orchestrates the full site build: sync content sources,
// extract reference metadata, assemble catalog tables, load and render
// articles, assemble pages and write the output tree. Per-document failures
// aggregate so one bad article or package never hides the rest.
package build

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/article"
	"git.home.luguber.info/inful/sitegen/internal/cache"
	"git.home.luguber.info/inful/sitegen/internal/catalog"
	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/gitsync"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/refdocs"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

// Stage names used in the report, metrics and logs.
const (
	StageSync     = "sync_sources"
	StageExtract  = "extract_reference"
	StageCatalog  = "build_catalog"
	StageLoad     = "load_articles"
	StageRender   = "render_articles"
	StageAssemble = "assemble_site"
	StageWrite    = "write_output"
)

// Options narrows a single build run.
type Options struct {
	// Section restricts the build to one content section. Empty builds all.
	Section string
	// Output overrides the configured output directory.
	Output string
}

// Builder runs builds for one configuration.
type Builder struct {
	cfg          *config.Config
	recorder     metrics.Recorder
	sessions     render.SessionFactory
	store        cache.Store
	extractor    *refdocs.Extractor
	workspaceDir string
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(b *Builder) {
		if rec != nil {
			b.recorder = rec
		}
	}
}

// WithSessionFactory overrides the execution session factory.
func WithSessionFactory(f render.SessionFactory) Option {
	return func(b *Builder) { b.sessions = f }
}

// WithCacheStore overrides the segment result cache.
func WithCacheStore(s cache.Store) Option {
	return func(b *Builder) { b.store = s }
}

// WithExtractor overrides the reference metadata extractor.
func WithExtractor(e *refdocs.Extractor) Option {
	return func(b *Builder) { b.extractor = e }
}

// WithWorkspaceDir sets the directory remote content sources are synced into.
func WithWorkspaceDir(dir string) Option {
	return func(b *Builder) { b.workspaceDir = dir }
}

// NewBuilder creates a builder. The execution session factory and segment
// cache are derived from the configuration unless overridden; a missing
// execution command only fails once an article actually contains code.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{
		cfg:          cfg,
		recorder:     metrics.NoopRecorder{},
		workspaceDir: ".sitegen/sources",
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.sessions == nil && len(cfg.Execution.Command) > 0 {
		factory, err := render.NewInterpreterFactory(cfg.Execution)
		if err != nil {
			return nil, err
		}
		b.sessions = factory
	}
	if b.store == nil {
		if cfg.Execution.CachePath != "" {
			store, err := cache.NewSQLiteStore(cfg.Execution.CachePath)
			if err != nil {
				return nil, err
			}
			b.store = store
		} else {
			b.store = cache.NopStore{}
		}
	}
	if b.extractor == nil {
		var filter *regexp.Regexp
		if cfg.Reference.Filter != "" {
			var err error
			filter, err = regexp.Compile(cfg.Reference.Filter)
			if err != nil {
				return nil, sgerrors.ValidationFailed("reference.filter", err.Error())
			}
		}
		b.extractor = refdocs.NewExtractor(filter,
			refdocs.WithConcurrency(cfg.Reference.FetchConcurrency),
			refdocs.WithRecorder(b.recorder))
	}
	return b, nil
}

// Close releases the builder's cache store.
func (b *Builder) Close() error {
	return b.store.Close()
}

// Run executes one full build. The returned report is non-nil even on
// failure. The error carries the aggregated per-document and per-package
// failures when the build finished partially, or the fatal error that
// aborted it.
func (b *Builder) Run(ctx context.Context, opts Options) (*Report, error) {
	report := newReport()
	slog.Info("Build started", logfields.BuildID(report.BuildID))

	failures := sgerrors.NewAggregate()

	contentRoots := []string{b.cfg.Content.Dir}
	if len(b.cfg.Content.Sources) > 0 {
		synced, err := b.runStage(report, StageSync, func() (any, error) {
			client := gitsync.NewClient(b.workspaceDir)
			if err := client.EnsureWorkspace(); err != nil {
				return nil, err
			}
			paths, err := client.SyncAll(b.cfg.Content.Sources)
			if err != nil {
				return nil, err
			}
			return paths, nil
		})
		if err != nil {
			return b.fail(report, err)
		}
		contentRoots = append(contentRoots, synced.([]string)...)
	}

	var entries []refdocs.Entry
	if len(b.cfg.Reference.Packages) > 0 {
		report.Packages = len(b.cfg.Reference.Packages)
		extracted, err := b.runStage(report, StageExtract, func() (any, error) {
			out, agg := b.extractor.Extract(ctx, b.cfg.Reference.Packages)
			if agg.Len() > 0 {
				report.FailedPackages = agg.Len()
				report.addWarning(agg)
				for _, e := range agg.Errors() {
					failures.Add(e)
				}
			}
			return out, nil
		})
		if err != nil {
			return b.fail(report, err)
		}
		entries = extracted.([]refdocs.Entry)
	}

	var tables []*catalog.Table
	if len(entries) > 0 {
		built, err := b.runStage(report, StageCatalog, func() (any, error) {
			ts, terr := b.buildTables(entries)
			if terr != nil {
				return nil, terr
			}
			return ts, nil
		})
		if err != nil {
			return b.fail(report, err)
		}
		tables = built.([]*catalog.Table)
		report.Tables = len(tables)
	}

	var articles []*article.Article
	_, err := b.runStage(report, StageLoad, func() (any, error) {
		for _, root := range contentRoots {
			loaded, agg := article.NewLoader(root).LoadAll(opts.Section)
			articles = append(articles, loaded...)
			if agg.Len() > 0 {
				report.FailedArticles += agg.Len()
				report.addError(agg)
				for _, e := range agg.Errors() {
					failures.Add(e)
				}
			}
		}
		report.Articles = len(articles)
		return nil, nil
	})
	if err != nil {
		return b.fail(report, err)
	}

	var rendered []*render.RenderedArticle
	_, err = b.runStage(report, StageRender, func() (any, error) {
		renderer := render.NewRenderer(b.sessions, b.store)
		for _, a := range articles {
			renderCtx := ctx
			cancel := func() {}
			if b.cfg.Execution.Timeout > 0 {
				renderCtx, cancel = context.WithTimeout(ctx, b.cfg.Execution.Timeout)
			}
			ra, renderErr := renderer.RenderArticle(renderCtx, a)
			cancel()
			if renderErr != nil {
				report.FailedArticles++
				report.addError(renderErr)
				failures.Add(renderErr)
				slog.Warn("Article rendering failed", logfields.Article(a.Path), logfields.Error(renderErr))
				continue
			}
			rendered = append(rendered, ra)
		}
		return nil, nil
	})
	if err != nil {
		return b.fail(report, err)
	}

	var assembled *site.Site
	var assembler *site.Assembler
	_, err = b.runStage(report, StageAssemble, func() (any, error) {
		var aerr error
		assembler, aerr = site.NewAssembler(b.cfg.Site, b.cfg.Content.Dir)
		if aerr != nil {
			return nil, aerr
		}
		assembled, aerr = assembler.Assemble(rendered, tables)
		return nil, aerr
	})
	if err != nil {
		return b.fail(report, err)
	}
	report.RenderedPages = len(assembled.Pages)
	b.recorder.IncPagesRendered(len(assembled.Pages))

	outputDir := b.cfg.Output.Directory
	if opts.Output != "" {
		outputDir = opts.Output
	}
	_, err = b.runStage(report, StageWrite, func() (any, error) {
		writer := &site.Writer{Dir: outputDir, Clean: b.cfg.Output.Clean}
		return nil, writer.Write(assembler, assembled)
	})
	if err != nil {
		return b.fail(report, err)
	}

	outcome := OutcomeSuccess
	if failures.Len() > 0 {
		outcome = OutcomePartial
	}
	report.finish(outcome)
	b.recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	b.recorder.IncBuildOutcome(string(outcome))

	if werr := report.WriteFile(outputDir); werr != nil {
		slog.Warn("Build report write failed", logfields.Error(werr))
	}

	slog.Info("Build finished",
		logfields.BuildID(report.BuildID),
		slog.String("outcome", string(outcome)),
		slog.Int("pages", report.RenderedPages),
		logfields.DurationMS(float64(report.End.Sub(report.Start).Milliseconds())))
	return report, failures.ErrOrNil()
}

// buildTables derives the reference tables from extractor output plus the
// attribute records file. Tables with no rows are omitted.
func (b *Builder) buildTables(entries []refdocs.Entry) ([]*catalog.Table, error) {
	records, err := catalog.LoadAttributes(b.cfg.Reference.AttributesFile)
	if err != nil {
		return nil, err
	}
	builder := catalog.NewBuilder(records)

	var tables []*catalog.Table
	if t := builder.Functions(entries); t.Len() > 0 {
		tables = append(tables, t)
	}
	if len(records.Models) > 0 {
		if t := builder.Models(entries); t.Len() > 0 {
			tables = append(tables, t)
		}
	}
	if steps := stepEntries(entries); len(steps) > 0 {
		tables = append(tables, builder.Steps(steps))
	}
	if t := builder.Parameters(); t.Len() > 0 {
		tables = append(tables, t)
	}
	return tables, nil
}

func stepEntries(entries []refdocs.Entry) []refdocs.Entry {
	var out []refdocs.Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Name, "step_") || strings.HasPrefix(e.Name, "check_") {
			out = append(out, e)
		}
	}
	return out
}

// runStage times one stage and records its result.
func (b *Builder) runStage(report *Report, stage string, fn func() (any, error)) (any, error) {
	started := time.Now()
	slog.Debug("Stage started", logfields.Stage(stage))

	out, err := fn()
	d := time.Since(started)
	report.StageDurations[stage] = d
	b.recorder.ObserveStageDuration(stage, d)

	if err != nil {
		b.recorder.IncStageResult(stage, metrics.ResultFatal)
		slog.Error("Stage failed", logfields.Stage(stage), logfields.Error(err), logfields.DurationMS(float64(d.Milliseconds())))
		return out, err
	}
	b.recorder.IncStageResult(stage, metrics.ResultSuccess)
	slog.Debug("Stage finished", logfields.Stage(stage), logfields.DurationMS(float64(d.Milliseconds())))
	return out, nil
}

func (b *Builder) fail(report *Report, err error) (*Report, error) {
	report.addError(err)
	report.finish(OutcomeFailed)
	b.recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	b.recorder.IncBuildOutcome(string(OutcomeFailed))
	return report, err
}

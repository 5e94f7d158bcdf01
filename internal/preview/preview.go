// Package preview runs a local development server: it builds the site,
// serves the output directory, rebuilds on content changes and periodically
// refreshes the reference metadata.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

const debounceDelay = 300 * time.Millisecond

// Server is the preview server.
type Server struct {
	cfg      *config.Config
	builder  *build.Builder
	registry *prometheus.Registry
	output   string

	mu        sync.RWMutex
	lastError error
}

// NewServer creates a preview server around an existing builder. registry may
// be nil to disable the metrics endpoint.
func NewServer(cfg *config.Config, builder *build.Builder, registry *prometheus.Registry) *Server {
	return &Server{
		cfg:      cfg,
		builder:  builder,
		registry: registry,
		output:   cfg.Output.Directory,
	}
}

// Run builds once, then serves and watches until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.rebuild(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addDirsRecursive(watcher, s.cfg.Content.Dir); err != nil {
		return err
	}

	rebuildReq := make(chan struct{}, 1)
	trigger := debounced(rebuildReq)
	go s.rebuildWorker(ctx, rebuildReq)

	scheduler, err := s.startScheduler(trigger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { _ = scheduler.Shutdown() }()
	}

	server := s.httpServer()
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Preview server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case err := <-serverErr:
			return err
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// LastError returns the most recent build failure, nil after a clean build.
func (s *Server) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Server) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}

func (s *Server) rebuild(ctx context.Context) {
	if _, err := s.builder.Run(ctx, build.Options{Output: s.output}); err != nil {
		slog.Warn("Preview build failed", logfields.Error(err))
		s.setError(err)
		return
	}
	s.setError(nil)
}

func (s *Server) rebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-rebuildReq:
			if !ok {
				return
			}
			slog.Info("Change detected, rebuilding site")
			s.rebuild(ctx)
		}
	}
}

// startScheduler schedules the periodic reference metadata refresh. Returns
// nil when no refresh interval is configured.
func (s *Server) startScheduler(trigger func()) (gocron.Scheduler, error) {
	if s.cfg.Preview.RefreshInterval <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.cfg.Preview.RefreshInterval),
		gocron.NewTask(func() {
			slog.Info("Refreshing reference metadata")
			trigger()
		}),
		gocron.WithName("reference-refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule metadata refresh: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

func (s *Server) httpServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.output)))
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return &http.Server{
		Addr:              s.cfg.Preview.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// debounced returns a trigger that coalesces bursts of calls into one
// request after a quiet period.
func debounced(rebuildReq chan struct{}) func() {
	var mu sync.Mutex
	var timer *time.Timer
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent filters hidden files and editor temp/swap files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") {
		return true
	}
	return false
}

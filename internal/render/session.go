// Package render executes an article's code segments in a persistent
// per-article session and interleaves the captured results with the rendered
// prose.
package render

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Figure is an image produced by a code segment.
type Figure struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Result is everything a single code segment produced.
type Result struct {
	Output   string   `json:"output,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Figures  []Figure `json:"figures,omitempty"`
}

// Session is a persistent evaluation context for one article. Bindings made
// by one Eval are visible to every later Eval in the same session; segments
// therefore run strictly left to right.
type Session interface {
	Eval(ctx context.Context, source string) (*Result, error)
	Close() error
}

// SessionFactory creates the private session for each article.
type SessionFactory interface {
	NewSession(ctx context.Context, doc string) (Session, error)
}

// InterpreterFactory launches the configured external interpreter once per
// article and feeds it code segments over stdin. The interpreter must support
// cat()-style output so the injected chunk marker round-trips; any
// R-compatible interpreter reading a script from stdin works.
type InterpreterFactory struct {
	cfg config.ExecutionConfig
}

// NewInterpreterFactory creates a factory from the execution configuration.
func NewInterpreterFactory(cfg config.ExecutionConfig) (*InterpreterFactory, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("execution.command is not configured")
	}
	return &InterpreterFactory{cfg: cfg}, nil
}

// NewSession implements SessionFactory.
func (f *InterpreterFactory) NewSession(ctx context.Context, doc string) (Session, error) {
	figDir, err := os.MkdirTemp("", "sitegen-figs-*")
	if err != nil {
		return nil, fmt.Errorf("create figure directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.cfg.Command[0], f.cfg.Command[1:]...) // #nosec G204 -- command comes from configuration
	cmd.Dir = f.cfg.WorkDir
	cmd.Env = append(os.Environ(), "SITEGEN_FIG_DIR="+figDir)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(figDir)
		return nil, fmt.Errorf("start interpreter for %s: %w", doc, err)
	}

	return &interpreterSession{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
		stderr: stderr,
		figDir: figDir,
		seen:   make(map[string]struct{}),
	}, nil
}

type interpreterSession struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *bufio.Scanner
	stderr   *lockedBuffer
	figDir   string
	seen     map[string]struct{}
	seq      int
	waitOnce sync.Once
	waitErr  error
}

// Eval feeds one code segment to the interpreter and captures its output
// until the injected chunk marker appears.
func (s *interpreterSession) Eval(ctx context.Context, source string) (*Result, error) {
	s.seq++
	marker := fmt.Sprintf("<<sitegen:chunk:%d>>", s.seq)

	if _, err := fmt.Fprintf(s.stdin, "%s\ncat(%q)\n", source, marker+"\n"); err != nil {
		return nil, fmt.Errorf("write to interpreter: %w", err)
	}

	var out bytes.Buffer
	sawMarker := false
	for s.stdout.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := s.stdout.Text()
		if line == marker {
			sawMarker = true
			break
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := s.stdout.Err(); err != nil {
		return nil, fmt.Errorf("read interpreter output: %w", err)
	}
	if !sawMarker {
		// EOF before the marker means the interpreter died mid-segment.
		if err := s.wait(); err != nil {
			return nil, fmt.Errorf("interpreter exited before segment completed: %w", err)
		}
		return nil, fmt.Errorf("interpreter exited before segment completed")
	}

	messages, warnings, evalErr := splitDiagnostics(s.stderr.Drain())
	if evalErr != nil {
		return nil, evalErr
	}

	figures, err := s.collectFigures()
	if err != nil {
		return nil, err
	}

	return &Result{
		Output:   strings.TrimRight(out.String(), "\n"),
		Messages: messages,
		Warnings: warnings,
		Figures:  figures,
	}, nil
}

// collectFigures returns figure files written since the previous segment.
func (s *interpreterSession) collectFigures() ([]Figure, error) {
	entries, err := os.ReadDir(s.figDir)
	if err != nil {
		return nil, fmt.Errorf("scan figure directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := s.seen[e.Name()]; ok {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var figures []Figure
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.figDir, name)) // #nosec G304 -- reading back our own figure directory
		if err != nil {
			return nil, fmt.Errorf("read figure %s: %w", name, err)
		}
		s.seen[name] = struct{}{}
		figures = append(figures, Figure{Name: name, Data: data})
	}
	return figures, nil
}

// wait reaps the interpreter process exactly once; Eval consults it when
// stdout closes early and Close reuses the recorded result.
func (s *interpreterSession) wait() error {
	s.waitOnce.Do(func() {
		_ = s.stdin.Close()
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

func (s *interpreterSession) Close() error {
	err := s.wait()
	_ = os.RemoveAll(s.figDir)
	return err
}

// splitDiagnostics classifies interpreter stderr lines. A line starting with
// "Error" fails the segment; "Warning" lines become warnings; everything else
// is a message.
func splitDiagnostics(raw string) (messages, warnings []string, err error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "Error"):
			return nil, nil, fmt.Errorf("%s", trimmed)
		case strings.HasPrefix(trimmed, "Warning"):
			warnings = append(warnings, trimmed)
		default:
			messages = append(messages, trimmed)
		}
	}
	return messages, warnings, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Drain returns and clears the buffered content.
func (b *lockedBuffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf.String()
	b.buf.Reset()
	return out
}

package render

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/article"
	"git.home.luguber.info/inful/sitegen/internal/cache"
	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

// fakeSession interprets a tiny assignment language so tests can observe
// binding visibility across segments without a real interpreter:
//
//	x <- 1        bind x
//	print(x)      output the bound value, or fail if unbound
//	plot(x)       produce a figure
//	message(m)    emit a message
//	warn(m)       emit a warning
type fakeSession struct {
	env    map[string]string
	evals  int
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{env: map[string]string{}}
}

func (s *fakeSession) Eval(_ context.Context, source string) (*Result, error) {
	s.evals++
	result := &Result{}
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.Contains(line, "<-"):
			name, value, _ := strings.Cut(line, "<-")
			s.env[strings.TrimSpace(name)] = strings.TrimSpace(value)
		case strings.HasPrefix(line, "print("):
			name := strings.TrimSuffix(strings.TrimPrefix(line, "print("), ")")
			value, ok := s.env[name]
			if !ok {
				return nil, fmt.Errorf("object '%s' not found", name)
			}
			result.Output += value + "\n"
		case strings.HasPrefix(line, "plot("):
			result.Figures = append(result.Figures, Figure{
				Name: fmt.Sprintf("fig-%d.png", s.evals),
				Data: []byte("png-bytes"),
			})
		case strings.HasPrefix(line, "message("):
			result.Messages = append(result.Messages, strings.TrimSuffix(strings.TrimPrefix(line, "message("), ")"))
		case strings.HasPrefix(line, "warn("):
			result.Warnings = append(result.Warnings, strings.TrimSuffix(strings.TrimPrefix(line, "warn("), ")"))
		default:
			return nil, fmt.Errorf("unexpected input %q", line)
		}
	}
	result.Output = strings.TrimRight(result.Output, "\n")
	return result, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	sessions []*fakeSession
}

func (f *fakeFactory) NewSession(context.Context, string) (Session, error) {
	s := newFakeSession()
	f.sessions = append(f.sessions, s)
	return s, nil
}

func testArticle(t *testing.T, body string) *article.Article {
	t.Helper()
	segments, err := article.SegmentBody([]byte(body))
	require.NoError(t, err)
	return &article.Article{Path: "start/models.md", Section: "start", Slug: "models", Segments: segments}
}

func TestRenderArticle_InterleavesOutputAfterCode(t *testing.T) {
	a := testArticle(t, "Intro.\n\n```{r show}\nx <- 42\nprint(x)\n```\n\nOutro.\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	kinds := make([]BlockKind, 0, len(rendered.Blocks))
	for _, b := range rendered.Blocks {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []BlockKind{BlockMarkup, BlockCode, BlockOutput, BlockMarkup}, kinds)
	assert.Contains(t, rendered.Blocks[2].HTML, "42")
}

func TestRenderArticle_BindingsVisibleToLaterSegments(t *testing.T) {
	a := testArticle(t, "```{r bind}\nx <- 7\n```\n```{r use}\nprint(x)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	// One session for the whole article.
	require.Len(t, factory.sessions, 1)
	assert.Equal(t, 2, factory.sessions[0].evals)
	assert.Contains(t, rendered.ContentHTML(), "7")
}

func TestRenderArticle_FailureAbortsRemainingSegments(t *testing.T) {
	a := testArticle(t, "```{r bad}\nprint(missing)\n```\n```{r never}\nx <- 1\n```\n")
	factory := &fakeFactory{}

	_, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.Error(t, err)

	be, ok := err.(*sgerrors.BuildError)
	require.True(t, ok)
	assert.Equal(t, sgerrors.CategoryExecution, be.Category)
	assert.Equal(t, "start/models.md", be.Context["document"])
	assert.Equal(t, 1, be.Context["segment"])

	// The second segment never ran.
	require.Len(t, factory.sessions, 1)
	assert.Equal(t, 1, factory.sessions[0].evals)
}

func TestRenderArticle_IncludeFalseExecutesSilently(t *testing.T) {
	a := testArticle(t, "```{r setup, include = FALSE}\nx <- 9\n```\n```{r use}\nprint(x)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	// Setup ran (binding visible) but produced no visible blocks.
	assert.Contains(t, rendered.ContentHTML(), "9")
	for _, b := range rendered.Blocks {
		assert.NotContains(t, b.HTML, "x &lt;- 9")
	}
}

func TestRenderArticle_EvalFalseShowsSourceWithoutRunning(t *testing.T) {
	a := testArticle(t, "```{r shown, eval = FALSE}\nprint(missing)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	assert.Empty(t, factory.sessions) // no session ever started
	require.Len(t, rendered.Blocks, 1)
	assert.Equal(t, BlockCode, rendered.Blocks[0].Kind)
}

func TestRenderArticle_EchoFalseHidesSource(t *testing.T) {
	a := testArticle(t, "```{r quiet, echo = FALSE}\nx <- 3\nprint(x)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	require.Len(t, rendered.Blocks, 1)
	assert.Equal(t, BlockOutput, rendered.Blocks[0].Kind)
}

func TestRenderArticle_MessageAndWarningSuppression(t *testing.T) {
	a := testArticle(t, "```{r s, message = FALSE, warning = FALSE}\nmessage(hi)\nwarn(careful)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	for _, b := range rendered.Blocks {
		assert.NotEqual(t, BlockMessage, b.Kind)
		assert.NotEqual(t, BlockWarning, b.Kind)
	}
}

func TestRenderArticle_FiguresSizedAndCollected(t *testing.T) {
	a := testArticle(t, "```{r p, fig.width = 8, fig.height = 5}\nplot(x)\n```\n")
	factory := &fakeFactory{}

	rendered, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	require.Len(t, rendered.Figures, 1)
	var figBlock *Block
	for i := range rendered.Blocks {
		if rendered.Blocks[i].Kind == BlockFigure {
			figBlock = &rendered.Blocks[i]
		}
	}
	require.NotNil(t, figBlock)
	assert.Contains(t, figBlock.HTML, `width="768"`)
	assert.Contains(t, figBlock.HTML, `height="480"`)
	assert.Contains(t, figBlock.HTML, "figures/fig-1.png")
}

func TestRenderArticle_CachedSegmentSkipsExecution(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	body := "```{r slow, cache = TRUE}\nx <- 1\nprint(x)\n```\n"

	first := &fakeFactory{}
	rendered1, err := NewRenderer(first, store).RenderArticle(context.Background(), testArticle(t, body))
	require.NoError(t, err)
	require.Len(t, first.sessions, 1)

	second := &fakeFactory{}
	rendered2, err := NewRenderer(second, store).RenderArticle(context.Background(), testArticle(t, body))
	require.NoError(t, err)
	assert.Empty(t, second.sessions) // cache hit: no session started
	assert.Equal(t, rendered1.ContentHTML(), rendered2.ContentHTML())
}

func TestRenderArticle_RoundTripIsByteIdentical(t *testing.T) {
	body := "# Title\n\nProse here.\n\n```{r a}\nx <- 5\nprint(x)\n```\n"

	r1, err := NewRenderer(&fakeFactory{}, nil).RenderArticle(context.Background(), testArticle(t, body))
	require.NoError(t, err)
	r2, err := NewRenderer(&fakeFactory{}, nil).RenderArticle(context.Background(), testArticle(t, body))
	require.NoError(t, err)

	assert.Equal(t, r1.ContentHTML(), r2.ContentHTML())
}

func TestRenderArticle_SessionClosedAfterRender(t *testing.T) {
	a := testArticle(t, "```{r x}\nx <- 1\n```\n")
	factory := &fakeFactory{}

	_, err := NewRenderer(factory, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, factory.sessions, 1)
	assert.True(t, factory.sessions[0].closed)
}

func TestRenderArticle_CollectsHeadings(t *testing.T) {
	a := testArticle(t, "# Top\n\n## Section one\n\ntext\n\n### Deep\n\n#### Too deep\n")
	rendered, err := NewRenderer(&fakeFactory{}, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)

	require.Len(t, rendered.Headings, 3)
	assert.Equal(t, "Top", rendered.Headings[0].Text)
	assert.Equal(t, 2, rendered.Headings[1].Level)
	assert.NotEmpty(t, rendered.Headings[1].ID)
}

func TestSplitDiagnostics(t *testing.T) {
	messages, warnings, err := splitDiagnostics("loading package\nWarning: deprecated\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"loading package"}, messages)
	assert.Equal(t, []string{"Warning: deprecated"}, warnings)

	_, _, err = splitDiagnostics("Error in lm(): object 'd' not found\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object 'd' not found")
}

func TestSegmentKey_ChangesWithSourceAndOptions(t *testing.T) {
	seg := article.Segment{Label: "a", Source: "x <- 1", Options: article.DefaultBlockOptions()}
	base := segmentKey("doc.md", seg)

	edited := seg
	edited.Source = "x <- 2"
	assert.NotEqual(t, base, segmentKey("doc.md", edited))

	resized := seg
	resized.Options.FigWidth = 8
	assert.NotEqual(t, base, segmentKey("doc.md", resized))

	assert.NotEqual(t, base, segmentKey("other.md", seg))
}

func TestRenderArticle_NoFactoryFailsEvaluatedSegment(t *testing.T) {
	a := testArticle(t, "```{r demo}\nx <- 1\n```\n")

	_, err := NewRenderer(nil, nil).RenderArticle(context.Background(), a)
	require.Error(t, err)

	be, ok := err.(*sgerrors.BuildError)
	require.True(t, ok)
	assert.Equal(t, sgerrors.CategoryExecution, be.Category)
	assert.Contains(t, err.Error(), "no execution command configured")
}

func TestRenderArticle_NoFactoryStillRendersProseOnly(t *testing.T) {
	a := testArticle(t, "# Heading\n\nProse only.\n")

	rendered, err := NewRenderer(nil, nil).RenderArticle(context.Background(), a)
	require.NoError(t, err)
	assert.Contains(t, rendered.ContentHTML(), "Prose only.")
}

func TestInterpreterSession_ExitBeforeMarkerFails(t *testing.T) {
	// head consumes the segment source and exits without ever echoing the
	// chunk marker, like an interpreter crashing mid-segment.
	factory, err := NewInterpreterFactory(config.ExecutionConfig{Command: []string{"head", "-n", "2"}})
	require.NoError(t, err)

	session, err := factory.NewSession(context.Background(), "start/models.md")
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	_, err = session.Eval(context.Background(), "x <- 1\nprint(x)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited before segment completed")
}

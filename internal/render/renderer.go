package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"path"
	"strings"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitegen/internal/article"
	"git.home.luguber.info/inful/sitegen/internal/cache"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// BlockKind classifies the rendered content blocks of an article.
type BlockKind string

const (
	BlockMarkup  BlockKind = "markup"
	BlockCode    BlockKind = "code"
	BlockOutput  BlockKind = "output"
	BlockMessage BlockKind = "message"
	BlockWarning BlockKind = "warning"
	BlockFigure  BlockKind = "figure"
)

// Block is one rendered content block, already safe HTML.
type Block struct {
	Kind BlockKind
	HTML string
}

// RenderedArticle is the renderer's output for one article: ordered content
// blocks, the heading outline, and any figure files to be written next to
// the page.
type RenderedArticle struct {
	Article  *article.Article
	Blocks   []Block
	Headings []Heading
	// Figures maps page-relative figure paths to image bytes.
	Figures map[string][]byte
}

// ContentHTML joins the blocks into the article's content HTML.
func (r *RenderedArticle) ContentHTML() string {
	var sb strings.Builder
	for _, b := range r.Blocks {
		sb.WriteString(b.HTML)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Renderer turns loaded articles into rendered content. Safe for reuse
// across articles; each article gets its own private session.
type Renderer struct {
	factory SessionFactory
	store   cache.Store
	md      goldmark.Markdown
}

// NewRenderer creates a renderer. store may be nil to disable caching.
// factory may be nil when no interpreter is configured; articles that
// evaluate code then fail with an execution error instead of rendering.
func NewRenderer(factory SessionFactory, store cache.Store) *Renderer {
	if store == nil {
		store = cache.NopStore{}
	}
	return &Renderer{
		factory: factory,
		store:   store,
		md:      newMarkdown(),
	}
}

// RenderArticle renders a single article: prose passes through Markdown
// conversion, code segments execute strictly left to right in one persistent
// session, and captured results are interleaved immediately after the segment
// that produced them. The first execution failure aborts the article's
// remaining segments.
func (r *Renderer) RenderArticle(ctx context.Context, a *article.Article) (*RenderedArticle, error) {
	out := &RenderedArticle{
		Article: a,
		Figures: make(map[string][]byte),
	}

	var session Session
	defer func() {
		if session != nil {
			if err := session.Close(); err != nil {
				slog.Debug("Session close failed", logfields.Article(a.Path), logfields.Error(err))
			}
		}
	}()

	for _, seg := range a.Segments {
		switch seg.Kind {
		case article.SegmentProse:
			html, headings, err := convertProse(r.md, []byte(seg.Source))
			if err != nil {
				return nil, sgerrors.Wrap(err, sgerrors.CategoryAssembly, sgerrors.SeverityFatal, "prose rendering failed").
					WithContext("document", a.Path)
			}
			out.Blocks = append(out.Blocks, Block{Kind: BlockMarkup, HTML: html})
			out.Headings = append(out.Headings, headings...)

		case article.SegmentCode:
			if seg.Options.Include && seg.Options.Echo {
				out.Blocks = append(out.Blocks, codeBlock(seg.Source))
			}
			if !seg.Options.Eval {
				continue
			}

			result, err := r.evalSegment(ctx, a, seg, &session)
			if err != nil {
				return nil, err
			}
			if !seg.Options.Include {
				continue
			}
			r.appendResult(out, a, seg, result)
		}
	}
	return out, nil
}

// evalSegment executes one code segment, consulting the cache first when the
// block opted in. Cached blocks skip execution entirely, so their bindings
// are not restored; articles relying on a cached block's bindings downstream
// should keep cache off for that block.
func (r *Renderer) evalSegment(ctx context.Context, a *article.Article, seg article.Segment, session *Session) (*Result, error) {
	key := segmentKey(a.Path, seg)

	if seg.Options.Cache {
		if payload, ok, err := r.store.Get(ctx, key); err != nil {
			slog.Warn("Cache read failed", logfields.Article(a.Path), logfields.Error(err))
		} else if ok {
			var cached Result
			if err := json.Unmarshal(payload, &cached); err == nil {
				slog.Debug("Segment result from cache", logfields.Article(a.Path), logfields.Segment(seg.Position))
				return &cached, nil
			}
		}
	}

	if *session == nil {
		if r.factory == nil {
			return nil, sgerrors.ExecutionFailure(a.Path, seg.Position, fmt.Errorf("no execution command configured"))
		}
		s, err := r.factory.NewSession(ctx, a.Path)
		if err != nil {
			return nil, sgerrors.ExecutionFailure(a.Path, seg.Position, err)
		}
		*session = s
	}

	result, err := (*session).Eval(ctx, seg.Source)
	if err != nil {
		return nil, sgerrors.ExecutionFailure(a.Path, seg.Position, err)
	}

	if seg.Options.Cache {
		if payload, err := json.Marshal(result); err == nil {
			if err := r.store.Put(ctx, key, payload); err != nil {
				slog.Warn("Cache write failed", logfields.Article(a.Path), logfields.Error(err))
			}
		}
	}
	return result, nil
}

func (r *Renderer) appendResult(out *RenderedArticle, a *article.Article, seg article.Segment, result *Result) {
	if result.Output != "" {
		out.Blocks = append(out.Blocks, Block{
			Kind: BlockOutput,
			HTML: fmt.Sprintf("<pre class=\"segment-output\"><code>%s</code></pre>", html.EscapeString(result.Output)),
		})
	}
	if seg.Options.Message {
		for _, msg := range result.Messages {
			out.Blocks = append(out.Blocks, Block{
				Kind: BlockMessage,
				HTML: fmt.Sprintf("<pre class=\"segment-message\"><code>%s</code></pre>", html.EscapeString(msg)),
			})
		}
	}
	if seg.Options.Warning {
		for _, warning := range result.Warnings {
			out.Blocks = append(out.Blocks, Block{
				Kind: BlockWarning,
				HTML: fmt.Sprintf("<pre class=\"segment-warning\"><code>%s</code></pre>", html.EscapeString(warning)),
			})
		}
	}
	for _, fig := range result.Figures {
		rel := path.Join("figures", fig.Name)
		out.Figures[rel] = fig.Data
		out.Blocks = append(out.Blocks, Block{
			Kind: BlockFigure,
			HTML: figureHTML(rel, seg.Options),
		})
	}
}

func codeBlock(source string) Block {
	return Block{
		Kind: BlockCode,
		HTML: fmt.Sprintf("<div class=\"highlight\"><pre><code class=\"language-r\">%s</code></pre></div>", html.EscapeString(source)),
	}
}

// figureHTML sizes images from the fig.width/fig.height options, which are
// authored in inches; pixel size uses the conventional 96 dpi.
func figureHTML(src string, opts article.BlockOptions) string {
	var attrs strings.Builder
	if opts.FigWidth > 0 {
		fmt.Fprintf(&attrs, ` width="%d"`, int(opts.FigWidth*96))
	}
	if opts.FigHeight > 0 {
		fmt.Fprintf(&attrs, ` height="%d"`, int(opts.FigHeight*96))
	}
	return fmt.Sprintf(`<p class="figure"><img src="%s"%s alt=""></p>`, src, attrs.String())
}

// segmentKey is the cache key of a code segment: block identity (document
// path and label) plus a hash of the source and the presentation-relevant
// options.
func segmentKey(doc string, seg article.Segment) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%+v", doc, seg.Label, seg.Source, seg.Options)
	return hex.EncodeToString(h.Sum(nil))
}

package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBody_ProseOnly(t *testing.T) {
	segments, err := SegmentBody([]byte("# Intro\n\nSome prose.\n"))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, SegmentProse, segments[0].Kind)
	assert.Contains(t, segments[0].Source, "Some prose.")
}

func TestSegmentBody_InterleavesProseAndCode(t *testing.T) {
	body := []byte("Before.\n\n```{r fit}\nlm(y ~ x, data = d)\n```\n\nAfter.\n")

	segments, err := SegmentBody(body)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, SegmentProse, segments[0].Kind)
	assert.Equal(t, SegmentCode, segments[1].Kind)
	assert.Equal(t, "fit", segments[1].Label)
	assert.Equal(t, 1, segments[1].Position)
	assert.Equal(t, "lm(y ~ x, data = d)", segments[1].Source)
	assert.Equal(t, SegmentProse, segments[2].Kind)
}

func TestSegmentBody_OrderIsPreserved(t *testing.T) {
	body := []byte("```{r a}\n1\n```\n```{r b}\n2\n```\n```{r c}\n3\n```\n")

	segments, err := SegmentBody(body)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	for i, label := range []string{"a", "b", "c"} {
		assert.Equal(t, label, segments[i].Label)
		assert.Equal(t, i+1, segments[i].Position)
	}
}

func TestSegmentBody_PlainFencesStayProse(t *testing.T) {
	body := []byte("Look:\n\n```r\nnot executed\n```\n")

	segments, err := SegmentBody(body)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, SegmentProse, segments[0].Kind)
	assert.Contains(t, segments[0].Source, "not executed")
}

func TestSegmentBody_UnnamedBlockGetsGeneratedLabel(t *testing.T) {
	segments, err := SegmentBody([]byte("```{r}\nx <- 1\n```\n"))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "unnamed-chunk-1", segments[0].Label)
}

func TestSegmentBody_UnterminatedBlock(t *testing.T) {
	_, err := SegmentBody([]byte("```{r fit}\nlm(y ~ x)\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestParseBlockHeader_Options(t *testing.T) {
	tests := []struct {
		name   string
		header string
		label  string
		check  func(t *testing.T, opts BlockOptions)
	}{
		{
			name:   "defaults",
			header: "{r}",
			check: func(t *testing.T, opts BlockOptions) {
				assert.Equal(t, DefaultBlockOptions(), opts)
			},
		},
		{
			name:   "label only",
			header: "{r setup}",
			label:  "setup",
		},
		{
			name:   "include false",
			header: "{r setup, include = FALSE}",
			label:  "setup",
			check: func(t *testing.T, opts BlockOptions) {
				assert.False(t, opts.Include)
				assert.True(t, opts.Eval)
			},
		},
		{
			name:   "figure sizing",
			header: "{r plot, fig.width = 8, fig.height = 5.75}",
			label:  "plot",
			check: func(t *testing.T, opts BlockOptions) {
				assert.Equal(t, 8.0, opts.FigWidth)
				assert.Equal(t, 5.75, opts.FigHeight)
			},
		},
		{
			name:   "cache and suppression",
			header: "{r slow-fit, cache = TRUE, message = FALSE, warning = FALSE}",
			label:  "slow-fit",
			check: func(t *testing.T, opts BlockOptions) {
				assert.True(t, opts.Cache)
				assert.False(t, opts.Message)
				assert.False(t, opts.Warning)
			},
		},
		{
			name:   "eval false",
			header: "{r shown-not-run, eval = FALSE}",
			label:  "shown-not-run",
			check: func(t *testing.T, opts BlockOptions) {
				assert.False(t, opts.Eval)
				assert.True(t, opts.Echo)
			},
		},
		{
			name:   "value with commas inside call",
			header: `{r sel, echo = FALSE, fig.width = 6}`,
			label:  "sel",
			check: func(t *testing.T, opts BlockOptions) {
				assert.False(t, opts.Echo)
				assert.Equal(t, 6.0, opts.FigWidth)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, opts, err := parseBlockHeader(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.label, label)
			if tt.check != nil {
				tt.check(t, opts)
			}
		})
	}
}

func TestParseBlockHeader_BadLogical(t *testing.T) {
	_, _, err := parseBlockHeader("{r x, eval = maybe}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eval")
}

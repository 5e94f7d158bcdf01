package article

import (
	"fmt"
	"strings"
)

// SegmentBody splits a document body into ordered prose and executable code
// segments. Executable blocks are fenced with ```{...} headers; plain fenced
// code blocks (```r, ```yaml, ...) stay inside the surrounding prose segment
// and render as static code.
func SegmentBody(body []byte) ([]Segment, error) {
	lines := strings.Split(string(body), "\n")

	var segments []Segment
	var prose []string
	var code []string
	var inBlock bool
	var label string
	var opts BlockOptions
	codePos := 0

	flushProse := func() {
		text := strings.Join(prose, "\n")
		prose = prose[:0]
		if strings.TrimSpace(text) == "" {
			return
		}
		segments = append(segments, Segment{Kind: SegmentProse, Source: text})
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && strings.HasPrefix(trimmed, "```{"):
			header := strings.TrimPrefix(trimmed, "```")
			var err error
			label, opts, err = parseBlockHeader(header)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			flushProse()
			inBlock = true
			code = code[:0]
		case inBlock && trimmed == "```":
			codePos++
			pos := codePos
			lbl := label
			if lbl == "" {
				lbl = fmt.Sprintf("unnamed-chunk-%d", pos)
			}
			segments = append(segments, Segment{
				Kind:     SegmentCode,
				Position: pos,
				Label:    lbl,
				Source:   strings.Join(code, "\n"),
				Options:  opts,
			})
			inBlock = false
		case inBlock:
			code = append(code, line)
		default:
			prose = append(prose, line)
		}
	}

	if inBlock {
		return nil, fmt.Errorf("unterminated code block %q", label)
	}
	flushProse()
	return segments, nil
}

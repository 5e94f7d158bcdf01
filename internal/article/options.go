package article

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockOptions are the recognized per-block configuration options of an
// executable code segment. Zero value is not useful; use DefaultBlockOptions.
type BlockOptions struct {
	Include   bool    // emit any output (false: execute for side effects only)
	Echo      bool    // emit the source code
	Eval      bool    // execute at all (false: source shown, nothing run)
	Message   bool    // emit interpreter messages
	Warning   bool    // emit interpreter warnings
	FigHeight float64 // figure height in inches
	FigWidth  float64 // figure width in inches
	Cache     bool    // reuse previous result keyed by block identity and content hash
}

// DefaultBlockOptions mirrors the defaults of the authoring format: blocks
// execute, echo their source, and show messages and warnings.
func DefaultBlockOptions() BlockOptions {
	return BlockOptions{
		Include: true,
		Echo:    true,
		Eval:    true,
		Message: true,
		Warning: true,
	}
}

// parseBlockHeader parses the inside of a fence header like
//
//	{r setup, include = FALSE, fig.width = 8}
//
// into the block label and options. The first comma-separated token without
// an "=" is the label. Unknown options are ignored rather than rejected so
// articles written against a newer option set still load.
func parseBlockHeader(header string) (label string, opts BlockOptions, err error) {
	opts = DefaultBlockOptions()

	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "{")
	header = strings.TrimSuffix(header, "}")
	header = strings.TrimSpace(header)

	// Leading language tag ("r").
	if header == "" {
		return "", opts, nil
	}
	parts := splitTopLevel(header, ',')
	first := strings.TrimSpace(parts[0])
	rest := parts[1:]
	if fields := strings.Fields(first); len(fields) > 1 {
		// "{r label}" form: language then label.
		label = fields[1]
	} else if first != "r" && !strings.Contains(first, "=") {
		label = first
	} else if strings.Contains(first, "=") {
		rest = parts
	}

	for _, part := range rest {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			if label == "" {
				label = part
				continue
			}
			return "", opts, fmt.Errorf("malformed block option %q", part)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "include":
			opts.Include, err = parseLogical(value)
		case "echo":
			opts.Echo, err = parseLogical(value)
		case "eval":
			opts.Eval, err = parseLogical(value)
		case "message":
			opts.Message, err = parseLogical(value)
		case "warning":
			opts.Warning, err = parseLogical(value)
		case "cache":
			opts.Cache, err = parseLogical(value)
		case "fig.height":
			opts.FigHeight, err = strconv.ParseFloat(value, 64)
		case "fig.width":
			opts.FigWidth, err = strconv.ParseFloat(value, 64)
		}
		if err != nil {
			return "", opts, fmt.Errorf("block option %s: %w", key, err)
		}
	}
	return label, opts, nil
}

func parseLogical(value string) (bool, error) {
	switch strings.ToUpper(value) {
	case "TRUE", "T":
		return true, nil
	case "FALSE", "F":
		return false, nil
	}
	return false, fmt.Errorf("expected TRUE or FALSE, got %q", value)
}

// splitTopLevel splits on sep outside of quotes and parentheses so option
// values like c("a", "b") survive.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := byte(0)
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}

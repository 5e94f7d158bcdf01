// Package article loads source documents into the in-memory document model:
// typed front matter plus an ordered sequence of prose and executable code
// segments.
package article

import (
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// SegmentKind distinguishes the body segment types.
type SegmentKind string

const (
	SegmentProse SegmentKind = "prose"
	SegmentCode  SegmentKind = "code"
)

// Segment is one ordered piece of an article body. Position is the 1-based
// index among code segments only, used when reporting execution failures.
type Segment struct {
	Kind     SegmentKind
	Position int
	Label    string
	Source   string
	Options  BlockOptions
}

// Article is the in-memory document model. Immutable after loading; the
// renderer never mutates it.
type Article struct {
	// Path is the source path relative to the content root, e.g.
	// "start/models.md". It doubles as the document identity in errors.
	Path     string
	Section  string
	Slug     string
	Meta     frontmatter.Fields
	Segments []Segment
}

// CodeSegments returns the executable segments in order.
func (a *Article) CodeSegments() []Segment {
	out := make([]Segment, 0, len(a.Segments))
	for _, s := range a.Segments {
		if s.Kind == SegmentCode {
			out = append(out, s)
		}
	}
	return out
}

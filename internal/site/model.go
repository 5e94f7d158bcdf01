// Package site composes rendered articles and reference tables into the
// final navigable site: page shells, sidebar, tag indexes and navigation.
package site

import (
	"html/template"

	"git.home.luguber.info/inful/sitegen/internal/render"
)

// PageKind distinguishes the page sources.
type PageKind string

const (
	PageArticle PageKind = "article"
	PageTable   PageKind = "table"
	PageTag     PageKind = "tag"
	PageSection PageKind = "section"
	PageHome    PageKind = "home"
)

// PageRef is a lightweight link to another page.
type PageRef struct {
	Title string
	URL   string
}

// TagLink pairs a tag with its index page.
type TagLink struct {
	Name string
	URL  string
}

// Page is the rendered unit presented to a visitor. It wraps an article's or
// table's content plus the navigation computed at assembly time.
type Page struct {
	Kind         PageKind
	Title        string
	Description  string
	Section      string
	SectionTitle string
	URL          string // site-absolute path, e.g. /start/models/
	Date         string
	Author       string
	AuthorURL    string
	Banner       string // page-relative banner path; empty when the asset is missing
	PhotoCredit  string
	Tags         []TagLink
	TOC          []render.Heading
	Content      template.HTML
	Prev         *PageRef
	Next         *PageRef
	Weight       int

	// Assets maps page-relative file paths (figures, banner) to content.
	Assets map[string][]byte
}

// Site is the fully assembled site, ready to write.
type Site struct {
	Title       string
	Description string
	BaseURL     string
	Pages       []*Page
	Sidebar     []SectionNav
}

// SectionNav is one sidebar group: a section and its pages in weight order.
type SectionNav struct {
	Title string
	URL   string
	Pages []PageRef
}

package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"git.home.luguber.info/inful/sitegen/internal/catalog"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed assets/site.css assets/tables.js
var assetFS embed.FS

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("site").ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse site templates: %w", err)
	}
	return tmpl, nil
}

// pageData is the payload handed to the layout template.
type pageData struct {
	Site *Site
	Page *Page
}

// RenderPage writes the full HTML document for a page.
func (a *Assembler) RenderPage(w io.Writer, s *Site, page *Page) error {
	return a.templates.ExecuteTemplate(w, "layout.gohtml", pageData{Site: s, Page: page})
}

type tableData struct {
	Slug    string
	Columns []string
	Rows    [][]catalog.Cell
}

// renderTableContent produces the embedded reference table markup. Column
// headers carry sort handles and a per-column filter input; the data
// attributes drive the client-side script so views re-evaluate without
// another fetch.
func (a *Assembler) renderTableContent(t *catalog.Table) (template.HTML, error) {
	var buf bytes.Buffer
	err := a.templates.ExecuteTemplate(&buf, "table.gohtml", tableData{
		Slug:    t.Slug,
		Columns: t.Columns,
		Rows:    t.Rows(),
	})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- template output
}

type listData struct {
	Heading string
	Pages   []*Page
}

func (a *Assembler) renderListContent(heading string, pages []*Page) (template.HTML, error) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, "list.gohtml", listData{Heading: heading, Pages: pages}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- template output
}

type homeData struct {
	Sidebar []SectionNav
}

func (a *Assembler) renderHomeContent(sidebar []SectionNav) (template.HTML, error) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, "home.gohtml", homeData{Sidebar: sidebar}); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil // #nosec G203 -- template output
}

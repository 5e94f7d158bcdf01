package site

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitegen/internal/catalog"
	"git.home.luguber.info/inful/sitegen/internal/config"
	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

var titleCaser = cases.Title(language.English)

// Assembler composes pages from rendered content.
type Assembler struct {
	site        config.SiteConfig
	contentRoot string
	templates   *template.Template
}

// NewAssembler creates an assembler. contentRoot is used to resolve optional
// page assets such as banner images.
func NewAssembler(site config.SiteConfig, contentRoot string) (*Assembler, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Assembler{site: site, contentRoot: contentRoot, templates: tmpl}, nil
}

// Assemble wraps every rendered article and reference table in its page
// shell, then derives section indexes, tag indexes, the home page and
// prev/next navigation. Sibling order within a section follows the weight
// ordering key, never file load order.
func (a *Assembler) Assemble(rendered []*render.RenderedArticle, tables []*catalog.Table) (*Site, error) {
	s := &Site{
		Title:       a.site.Title,
		Description: a.site.Description,
		BaseURL:     a.site.BaseURL,
	}

	articlePages := make([]*Page, 0, len(rendered))
	for _, r := range rendered {
		articlePages = append(articlePages, a.articlePage(r))
	}
	a.linkSiblings(articlePages)

	tablePages := make([]*Page, 0, len(tables))
	for _, t := range tables {
		page, err := a.tablePage(t)
		if err != nil {
			return nil, err
		}
		tablePages = append(tablePages, page)
	}
	a.linkSiblings(tablePages)

	s.Pages = append(s.Pages, articlePages...)
	s.Pages = append(s.Pages, tablePages...)
	s.Pages = append(s.Pages, a.sectionIndexes(articlePages)...)
	s.Pages = append(s.Pages, a.tagIndexes(articlePages)...)
	s.Sidebar = buildSidebar(articlePages, tablePages)

	home, err := a.homePage(s.Sidebar)
	if err != nil {
		return nil, err
	}
	s.Pages = append(s.Pages, home)

	slog.Info("Site assembled", slog.Int("pages", len(s.Pages)))
	return s, nil
}

func (a *Assembler) articlePage(r *render.RenderedArticle) *Page {
	meta := r.Article.Meta

	author := meta.Author
	if author == "" {
		author = a.site.Author
	}

	page := &Page{
		Kind:         PageArticle,
		Title:        meta.Title,
		Description:  meta.Description,
		Section:      r.Article.Section,
		SectionTitle: SectionTitle(r.Article.Section),
		URL:          articleURL(r.Article.Section, r.Article.Slug),
		Date:         meta.Date,
		Author:       author,
		AuthorURL:    a.site.AuthorURL,
		PhotoCredit:  meta.PhotoCredit,
		TOC:          r.Headings,
		Content:      template.HTML(r.ContentHTML()), // #nosec G203 -- renderer output is already escaped
		Weight:       meta.Weight,
		Assets:       map[string][]byte{},
	}

	for rel, data := range r.Figures {
		page.Assets[rel] = data
	}

	// Missing banner assets degrade by omission.
	if meta.Banner != "" {
		bannerPath := filepath.Join(a.contentRoot, filepath.FromSlash(r.Article.Section), filepath.FromSlash(meta.Banner))
		if data, err := os.ReadFile(bannerPath); err == nil { // #nosec G304 -- resolved under the content root
			rel := "banner" + filepath.Ext(meta.Banner)
			page.Assets[rel] = data
			page.Banner = rel
		} else {
			slog.Debug("Banner image missing, omitting", logfields.Article(r.Article.Path), logfields.Path(bannerPath))
		}
	}

	tags := make([]string, 0, len(meta.Tags))
	for tag := range meta.TagSet() {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		page.Tags = append(page.Tags, TagLink{Name: tag, URL: tagURL(tag)})
	}
	return page
}

func (a *Assembler) tablePage(t *catalog.Table) (*Page, error) {
	content, err := a.renderTableContent(t)
	if err != nil {
		return nil, sgerrors.AssemblyError(t.Slug, err)
	}
	return &Page{
		Kind:         PageTable,
		Title:        t.Name,
		Section:      "reference",
		SectionTitle: "Reference",
		URL:          fmt.Sprintf("/reference/%s/", t.Slug),
		Author:       a.site.Author,
		Content:      content,
		Assets:       map[string][]byte{},
	}, nil
}

// linkSiblings fills Prev/Next within each section by weight order.
func (a *Assembler) linkSiblings(pages []*Page) {
	bySection := make(map[string][]*Page)
	for _, p := range pages {
		bySection[p.Section] = append(bySection[p.Section], p)
	}
	for _, siblings := range bySection {
		sort.SliceStable(siblings, func(i, j int) bool {
			if siblings[i].Weight != siblings[j].Weight {
				return siblings[i].Weight < siblings[j].Weight
			}
			return siblings[i].URL < siblings[j].URL
		})
		for i, p := range siblings {
			if i > 0 {
				p.Prev = &PageRef{Title: siblings[i-1].Title, URL: siblings[i-1].URL}
			}
			if i < len(siblings)-1 {
				p.Next = &PageRef{Title: siblings[i+1].Title, URL: siblings[i+1].URL}
			}
		}
	}
}

func (a *Assembler) sectionIndexes(articles []*Page) []*Page {
	bySection := make(map[string][]*Page)
	for _, p := range articles {
		if p.Section == "" {
			continue
		}
		bySection[p.Section] = append(bySection[p.Section], p)
	}

	sections := sortedKeys(bySection)
	var out []*Page
	for _, section := range sections {
		siblings := bySection[section]
		sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Weight < siblings[j].Weight })

		content, err := a.renderListContent(SectionTitle(section), siblings)
		if err != nil {
			slog.Warn("Section index rendering failed", logfields.Section(section), logfields.Error(err))
			continue
		}
		out = append(out, &Page{
			Kind:         PageSection,
			Title:        SectionTitle(section),
			Section:      section,
			SectionTitle: SectionTitle(section),
			URL:          fmt.Sprintf("/%s/", section),
			Content:      content,
			Assets:       map[string][]byte{},
		})
	}
	return out
}

// tagIndexes creates one listing page per tag; every tag link on an article
// resolves to the page listing all articles sharing that tag.
func (a *Assembler) tagIndexes(articles []*Page) []*Page {
	byTag := make(map[string][]*Page)
	for _, p := range articles {
		for _, tag := range p.Tags {
			byTag[tag.Name] = append(byTag[tag.Name], p)
		}
	}

	var out []*Page
	for _, tag := range sortedKeys(byTag) {
		tagged := byTag[tag]
		sort.SliceStable(tagged, func(i, j int) bool { return tagged[i].Title < tagged[j].Title })

		content, err := a.renderListContent(fmt.Sprintf("Tagged %q", tag), tagged)
		if err != nil {
			slog.Warn("Tag index rendering failed", logfields.Name(tag), logfields.Error(err))
			continue
		}
		out = append(out, &Page{
			Kind:    PageTag,
			Title:   titleCaser.String(tag),
			URL:     tagURL(tag),
			Content: content,
			Assets:  map[string][]byte{},
		})
	}
	return out
}

func (a *Assembler) homePage(sidebar []SectionNav) (*Page, error) {
	content, err := a.renderHomeContent(sidebar)
	if err != nil {
		return nil, sgerrors.AssemblyError("home", err)
	}
	return &Page{
		Kind:        PageHome,
		Title:       a.site.Title,
		Description: a.site.Description,
		URL:         "/",
		Content:     content,
		Assets:      map[string][]byte{},
	}, nil
}

func buildSidebar(articles, tables []*Page) []SectionNav {
	bySection := make(map[string][]*Page)
	for _, p := range articles {
		bySection[p.Section] = append(bySection[p.Section], p)
	}

	var nav []SectionNav
	for _, section := range sortedKeys(bySection) {
		siblings := bySection[section]
		sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Weight < siblings[j].Weight })
		entry := SectionNav{Title: SectionTitle(section), URL: fmt.Sprintf("/%s/", section)}
		for _, p := range siblings {
			entry.Pages = append(entry.Pages, PageRef{Title: p.Title, URL: p.URL})
		}
		nav = append(nav, entry)
	}

	if len(tables) > 0 {
		entry := SectionNav{Title: "Reference", URL: "/reference/"}
		for _, p := range tables {
			entry.Pages = append(entry.Pages, PageRef{Title: p.Title, URL: p.URL})
		}
		nav = append(nav, entry)
	}
	return nav
}

// SectionTitle derives a display title from a section directory name.
func SectionTitle(section string) string {
	if section == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(section, "-", " "))
}

func articleURL(section, slug string) string {
	if section == "" {
		return "/" + slug + "/"
	}
	return fmt.Sprintf("/%s/%s/", section, slug)
}

func tagURL(tag string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), " ", "-"))
	return fmt.Sprintf("/tags/%s/", slug)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package refdocs

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// parseReferenceIndex extracts symbol entries from a package reference index
// page. The expected shape is the standard generated index: tables whose rows
// hold a linked symbol in the first cell and its short description in the
// second. Order of appearance is preserved.
func parseReferenceIndex(pkg config.Package, body []byte) ([]Entry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse index HTML: %w", err)
	}

	base, err := url.Parse(pkg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	refBase := *base
	refBase.Path = strings.TrimSuffix(refBase.Path, "/") + "/reference/"

	var entries []Entry
	for _, table := range findAll(doc, "table") {
		for _, row := range findAll(table, "tr") {
			cells := findAll(row, "td")
			if len(cells) < 1 {
				continue
			}
			title := ""
			if len(cells) > 1 {
				title = collapseWhitespace(textContent(cells[1]))
			}
			for _, anchor := range findAll(cells[0], "a") {
				href := attrValue(anchor, "href")
				name := symbolName(textContent(anchor))
				if name == "" || href == "" {
					continue
				}
				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				entries = append(entries, Entry{
					Name:    name,
					Package: pkg.Name,
					Title:   title,
					URL:     refBase.ResolveReference(ref).String(),
				})
			}
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no reference entries found in index for %s", pkg.Name)
	}
	return entries, nil
}

// symbolName normalizes a linked symbol label: "step_date()" -> "step_date".
func symbolName(label string) string {
	name := strings.TrimSpace(label)
	name = strings.TrimSuffix(name, "()")
	// Multi-symbol labels like "tidy() glance()" keep only the first.
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
		name = strings.TrimSuffix(name, "()")
	}
	return name
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
			if tag == "table" {
				// Nested tables are not a thing in these indexes.
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	if n.Type == html.ElementNode && n.Data == tag {
		out = append([]*html.Node{n}, out...)
	}
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

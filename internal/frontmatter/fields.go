package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Fields is the typed front matter of an article.
//
// Title, weight and description are required; everything else degrades
// gracefully when absent (the corresponding UI element is omitted).
type Fields struct {
	Title       string   `yaml:"title"`
	Weight      int      `yaml:"weight"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
	Date        string   `yaml:"date,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Banner      string   `yaml:"banner,omitempty"`
	PhotoCredit string   `yaml:"photo_credit,omitempty"`
	Draft       bool     `yaml:"draft,omitempty"`
}

// Decode parses raw YAML front matter into Fields.
func Decode(fm []byte) (*Fields, error) {
	var fields Fields
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

// MissingField returns the name of the first required field that is missing
// or empty, or "" when the front matter is complete. Weight zero is treated
// as unset: ordering keys start at 1 so that unset weights are caught early
// instead of silently sorting first.
func (f *Fields) MissingField() string {
	if f == nil {
		return "title"
	}
	if strings.TrimSpace(f.Title) == "" {
		return "title"
	}
	if f.Weight == 0 {
		return "weight"
	}
	if strings.TrimSpace(f.Description) == "" {
		return "description"
	}
	return ""
}

// TagSet returns the tags as a set, trimmed and with empty entries dropped.
func (f *Fields) TagSet() map[string]struct{} {
	return toSet(f.Tags)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

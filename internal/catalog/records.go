// Package catalog joins reference entries against curated attribute records
// into the sortable, filterable tables presented on the site.
package catalog

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

// ModelAttribute is one declared (alias, mode, engine) fact from the curated
// records source. Aliases repeat freely; Summarize collapses them.
type ModelAttribute struct {
	Alias  string `yaml:"alias"`
	Mode   string `yaml:"mode,omitempty"`
	Engine string `yaml:"engine,omitempty"`
}

// ParameterAlias maps a tuning parameter object to the function alias that
// accepts it.
type ParameterAlias struct {
	Parameter string `yaml:"parameter"`
	Alias     string `yaml:"alias"`
}

// AttributeRecords is the secondary records source joined into the base
// reference tables.
type AttributeRecords struct {
	Models     []ModelAttribute `yaml:"models,omitempty"`
	Parameters []ParameterAlias `yaml:"parameters,omitempty"`
}

// LoadAttributes reads the attribute records file. A missing path yields
// empty records: the join degrades to empty attribute columns rather than
// failing the build.
func LoadAttributes(path string) (*AttributeRecords, error) {
	if path == "" {
		return &AttributeRecords{}, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return &AttributeRecords{}, nil
		}
		return nil, sgerrors.Wrap(err, sgerrors.CategoryFileSystem, sgerrors.SeverityFatal, "failed to read attribute records").
			WithContext("path", path)
	}
	var records AttributeRecords
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, sgerrors.Wrap(err, sgerrors.CategoryValidation, sgerrors.SeverityFatal, "failed to parse attribute records").
			WithContext("path", path)
	}
	return &records, nil
}

// Summary holds the collapsed per-alias attribute strings. Each alias maps to
// exactly one mode string and one engine string: distinct values sorted,
// de-duplicated and comma-joined.
type Summary struct {
	Modes   string
	Engines string
}

// Summarize groups model attribute records by alias.
func Summarize(records []ModelAttribute) map[string]Summary {
	modes := make(map[string]map[string]struct{})
	engines := make(map[string]map[string]struct{})
	for _, rec := range records {
		if rec.Alias == "" {
			continue
		}
		if rec.Mode != "" {
			addValue(modes, rec.Alias, rec.Mode)
		}
		if rec.Engine != "" {
			addValue(engines, rec.Alias, rec.Engine)
		}
	}

	out := make(map[string]Summary)
	for alias := range modes {
		s := out[alias]
		s.Modes = joinSorted(modes[alias])
		out[alias] = s
	}
	for alias := range engines {
		s := out[alias]
		s.Engines = joinSorted(engines[alias])
		out[alias] = s
	}
	return out
}

// SummarizeParameters groups parameter aliases by parameter name, collapsing
// the functions that accept each parameter into one sorted list.
func SummarizeParameters(records []ParameterAlias) map[string]string {
	byParam := make(map[string]map[string]struct{})
	for _, rec := range records {
		if rec.Parameter == "" || rec.Alias == "" {
			continue
		}
		addValue(byParam, rec.Parameter, rec.Alias)
	}
	out := make(map[string]string, len(byParam))
	for param, aliases := range byParam {
		out[param] = joinSorted(aliases)
	}
	return out
}

func addValue(m map[string]map[string]struct{}, key, value string) {
	if m[key] == nil {
		m[key] = make(map[string]struct{})
	}
	m[key][value] = struct{}{}
}

func joinSorted(values map[string]struct{}) string {
	out := make([]string, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

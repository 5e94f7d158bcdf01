package catalog

import (
	"sort"

	"git.home.luguber.info/inful/sitegen/internal/refdocs"
)

// Builder assembles the site's reference tables from extractor output and
// attribute records.
type Builder struct {
	records *AttributeRecords
}

// NewBuilder creates a builder over the given attribute records. records may
// be nil, in which case all attribute columns are empty.
func NewBuilder(records *AttributeRecords) *Builder {
	if records == nil {
		records = &AttributeRecords{}
	}
	return &Builder{records: records}
}

// Functions builds the flat function reference table: every extracted symbol
// with its package, description and documentation link.
func (b *Builder) Functions(entries []refdocs.Entry) *Table {
	t := NewTable("Function reference", "functions", "Function", "Package", "Description")
	for _, e := range entries {
		_ = t.Append(
			Cell{Text: e.Name, URL: e.URL},
			Cell{Text: e.Package},
			Cell{Text: e.Title},
		)
	}
	return t
}

// Models builds the model table: each symbol outer-joined against the
// summarized per-alias modes and engines. Symbols with no declared attributes
// keep empty mode/engine cells rather than being dropped.
func (b *Builder) Models(entries []refdocs.Entry) *Table {
	summary := Summarize(b.records.Models)
	t := NewTable("Model reference", "models", "Model", "Package", "Modes", "Engines", "Description")
	for _, e := range entries {
		attrs := summary[e.Name]
		_ = t.Append(
			Cell{Text: e.Name, URL: e.URL},
			Cell{Text: e.Package},
			Cell{Text: attrs.Modes},
			Cell{Text: attrs.Engines},
			Cell{Text: e.Title},
		)
	}
	return t
}

// Steps builds the preprocessing step table from the already-filtered
// extractor output.
func (b *Builder) Steps(entries []refdocs.Entry) *Table {
	t := NewTable("Recipe steps", "steps", "Step", "Package", "Description")
	for _, e := range entries {
		_ = t.Append(
			Cell{Text: e.Name, URL: e.URL},
			Cell{Text: e.Package},
			Cell{Text: e.Title},
		)
	}
	return t
}

// Parameters builds the parameter alias mapping table: one row per tuning
// parameter with the sorted list of functions that accept it.
func (b *Builder) Parameters() *Table {
	byParam := SummarizeParameters(b.records.Parameters)
	params := make([]string, 0, len(byParam))
	for p := range byParam {
		params = append(params, p)
	}
	sort.Strings(params)

	t := NewTable("Parameter aliases", "parameters", "Parameter", "Functions")
	for _, p := range params {
		_ = t.Append(Cell{Text: p}, Cell{Text: byParam[p]})
	}
	return t
}

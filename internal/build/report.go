package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	sgerrors "git.home.luguber.info/inful/sitegen/internal/errors"
)

// Outcome classifies a finished build.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial" // built with per-document or per-package failures
	OutcomeFailed  Outcome = "failed"
)

// Report captures what a build did. It is written next to the generated
// site as build-report.json so external tooling can inspect a build without
// parsing logs.
type Report struct {
	BuildID        string                   `json:"build_id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	Packages       int                      `json:"packages"`
	FailedPackages int                      `json:"failed_packages"`
	Articles       int                      `json:"articles"`
	FailedArticles int                      `json:"failed_articles"`
	Tables         int                      `json:"tables"`
	RenderedPages  int                      `json:"rendered_pages"`
	Errors         []string                 `json:"errors"`
	Warnings       []string                 `json:"warnings"`
	Outcome        Outcome                  `json:"outcome"`
}

func newReport() *Report {
	return &Report{
		BuildID:        uuid.NewString(),
		Start:          time.Now(),
		StageDurations: map[string]time.Duration{},
		Errors:         []string{},
		Warnings:       []string{},
	}
}

func (r *Report) addError(err error) {
	if agg, ok := err.(*sgerrors.Aggregate); ok {
		for _, e := range agg.Errors() {
			r.Errors = append(r.Errors, e.Error())
		}
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

func (r *Report) addWarning(err error) {
	if agg, ok := err.(*sgerrors.Aggregate); ok {
		for _, e := range agg.Errors() {
			r.Warnings = append(r.Warnings, e.Error())
		}
		return
	}
	r.Warnings = append(r.Warnings, err.Error())
}

func (r *Report) finish(outcome Outcome) {
	r.End = time.Now()
	r.Outcome = outcome
}

// WriteFile serializes the report as build-report.json under dir.
func (r *Report) WriteFile(dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "build-report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sgerrors.WriteError(path, err)
	}
	return nil
}

package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder_IsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("render", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncStageResult("render", ResultSuccess)
	r.IncBuildOutcome("success")
	r.ObserveFetchDuration("recipes", time.Second, true)
	r.IncPagesRendered(3)
}

func TestPrometheusRecorder_RegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncStageResult("render", ResultSuccess)
	r.IncBuildOutcome("success")
	r.ObserveStageDuration("render", 200*time.Millisecond)
	r.ObserveBuildDuration(time.Second)
	r.ObserveFetchDuration("recipes", 50*time.Millisecond, false)
	r.IncPagesRendered(5)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sitegen_stage_results_total"])
	assert.True(t, names["sitegen_build_duration_seconds"])
	assert.True(t, names["sitegen_reference_fetch_duration_seconds"])
	assert.True(t, names["sitegen_pages_rendered_total"])
}

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())
}

func TestRecordDecision_CountsAllowedAndDenied(t *testing.T) {
	m := New()

	m.RecordDecision("x", true, 9)
	m.RecordDecision("x", false, 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "ratelimit_decisions_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2, "one series per (resource, outcome) pair")
		}
	}
	assert.True(t, found, "ratelimit_decisions_total should be registered")
}

func TestRecordEvalDuration_Observes(t *testing.T) {
	m := New()
	m.RecordEvalDuration("x", 5*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() == "ratelimit_eval_duration_seconds" {
			require.Len(t, f.GetMetric(), 1)
			assert.EqualValues(t, 1, f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
}

func TestRecordError_IncrementsByKind(t *testing.T) {
	m := New()
	m.RecordError("unavailable")
	m.RecordError("unavailable")
	m.RecordError("deadline_exceeded")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != "ratelimit_errors_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == "unavailable" {
					assert.EqualValues(t, 2, metric.GetCounter().GetValue())
				}
			}
		}
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

func TestNewRegistersAllFamilies(t *testing.T) {
	m := New()

	m.ObserveEvaluation("startup", 40*time.Millisecond)
	m.IncFetchFailure()
	m.RecordResult(&model.Result{
		Active:         true,
		Eligible:       make([]model.Instance, 3),
		NextTransition: time.Unix(1767620700, 0),
		Diagnostics: []model.Diagnostic{
			{UID: "a", Reason: model.DiagBadEnd},
		},
	})

	families, err := m.registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"calswitch_evaluations_total",
		"calswitch_fetch_failures_total",
		"calswitch_dropped_events_total",
		"calswitch_switch_active",
		"calswitch_eligible_instances",
		"calswitch_next_transition_timestamp_seconds",
		"calswitch_evaluation_duration_seconds",
	} {
		assert.True(t, names[want], "missing family %s", want)
	}
}

func TestObserveEvaluationCountsByTrigger(t *testing.T) {
	m := New()

	m.ObserveEvaluation("poll", 10*time.Millisecond)
	m.ObserveEvaluation("poll", 12*time.Millisecond)
	m.ObserveEvaluation("boundary", 9*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("poll")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("boundary")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("manual")))
}

func TestRecordResultGauges(t *testing.T) {
	m := New()

	next := time.Date(2026, time.January, 5, 9, 30, 0, 0, time.UTC)
	m.RecordResult(&model.Result{
		Active:         true,
		Eligible:       make([]model.Instance, 4),
		NextTransition: next,
		Diagnostics: []model.Diagnostic{
			{UID: "a", Reason: model.DiagBadEnd},
			{UID: "b", Reason: model.DiagBadEnd},
			{UID: "c", Reason: model.DiagUnsupportedFrequency},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwitchActive))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.EligibleCount))
	assert.Equal(t, float64(next.Unix()), testutil.ToFloat64(m.NextTransition))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedEvents.WithLabelValues(model.DiagBadEnd)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedEvents.WithLabelValues(model.DiagUnsupportedFrequency)))

	// An idle result clears the gauges.
	m.RecordResult(&model.Result{})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SwitchActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EligibleCount))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NextTransition))
}

func TestHandlerServesExposition(t *testing.T) {
	m := New()
	m.IncFetchFailure()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "calswitch_fetch_failures_total 1")
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// Metrics holds all Prometheus collectors, registered on a private
// registry so the exposition carries only this application's series.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations    *prometheus.CounterVec
	FetchFailures  prometheus.Counter
	DroppedEvents  *prometheus.CounterVec
	SwitchActive   prometheus.Gauge
	EligibleCount  prometheus.Gauge
	NextTransition prometheus.Gauge
	EvalDuration   prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calswitch_evaluations_total",
				Help: "Total number of feed evaluations by trigger",
			},
			[]string{"trigger"},
		),
		FetchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "calswitch_fetch_failures_total",
				Help: "Total number of failed feed fetches",
			},
		),
		DroppedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calswitch_dropped_events_total",
				Help: "Total number of per-event diagnostics by reason",
			},
			[]string{"reason"},
		),
		SwitchActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "calswitch_switch_active",
				Help: "Whether an eligible calendar instance is active now (1) or not (0)",
			},
		),
		EligibleCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "calswitch_eligible_instances",
				Help: "Number of eligible instances in the evaluation window",
			},
		),
		NextTransition: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "calswitch_next_transition_timestamp_seconds",
				Help: "Unix time of the next computed switch transition, 0 when none",
			},
		),
		EvalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "calswitch_evaluation_duration_seconds",
				Help:    "Duration of one fetch+evaluate cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Handler returns the exposition handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvaluation records one completed evaluation.
func (m *Metrics) ObserveEvaluation(trigger string, d time.Duration) {
	m.Evaluations.WithLabelValues(trigger).Inc()
	m.EvalDuration.Observe(d.Seconds())
}

// IncFetchFailure increments the fetch failure counter.
func (m *Metrics) IncFetchFailure() {
	m.FetchFailures.Inc()
}

// RecordResult publishes the gauges and diagnostic counters for one
// evaluation result.
func (m *Metrics) RecordResult(res *model.Result) {
	if res.Active {
		m.SwitchActive.Set(1)
	} else {
		m.SwitchActive.Set(0)
	}
	m.EligibleCount.Set(float64(len(res.Eligible)))
	if res.NextTransition.IsZero() {
		m.NextTransition.Set(0)
	} else {
		m.NextTransition.Set(float64(res.NextTransition.Unix()))
	}
	for _, d := range res.Diagnostics {
		m.DroppedEvents.WithLabelValues(d.Reason).Inc()
	}
}

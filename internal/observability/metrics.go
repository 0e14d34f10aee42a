// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. Each instance
// carries its own registry so tests can run with fresh state per case.
type Metrics struct {
	registry *prometheus.Registry

	// Scheduler metrics
	MastersSplit              prometheus.Counter
	ChildTasksCreated         prometheus.Counter
	ChildTasksDeleted         prometheus.Counter
	PredictionChildrenCreated prometheus.Counter
	CanceledMastersReclaimed  prometheus.Counter
	SplitDuration             prometheus.Histogram

	// Aggregation metrics
	AggregationQueries  *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	ForecastsComputed   prometheus.Counter

	// Health metrics
	LastSchedulerPass prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "adpulse"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		MastersSplit: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masters_split_total",
			Help:      "Number of master tasks split into children",
		}),
		ChildTasksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_tasks_created_total",
			Help:      "Number of day-granular child tasks created",
		}),
		ChildTasksDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "child_tasks_deleted_total",
			Help:      "Number of child tasks deleted after losing a priority conflict",
		}),
		PredictionChildrenCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_children_created_total",
			Help:      "Number of per-pair prediction children created",
		}),
		CanceledMastersReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canceled_masters_reclaimed_total",
			Help:      "Number of canceled masters removed past retention",
		}),
		SplitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "split_duration_seconds",
			Help:      "Duration of master split operations",
			Buckets:   prometheus.DefBuckets,
		}),

		AggregationQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_queries_total",
			Help:      "Number of aggregation cube builds by view",
		}, []string{"view"}),
		AggregationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of aggregation cube builds",
			Buckets:   prometheus.DefBuckets,
		}),
		ForecastsComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_computed_total",
			Help:      "Number of period forecasts computed",
		}),

		LastSchedulerPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scheduler_pass_timestamp_seconds",
			Help:      "Unix time of the last completed scheduler pass",
		}),
	}
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

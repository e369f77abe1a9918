package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

const metricsNamespace = "shopify_migrator"

// Collector is a prometheus.Collector that collects metrics about
// migration runs started through the API.
type Collector struct {
	definitions *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		definitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "definitions_total",
				Help:      "Definitions handled by migration runs, by category and outcome.",
			}, []string{"category", "status"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Migration runs by result.",
			}, []string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of a migration run.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
	}
}

// ObserveRun records the outcome of one finished run.
func (c *Collector) ObserveRun(result string, elapsed time.Duration, snap models.SummarySnapshot) {
	c.runs.WithLabelValues(result).Inc()
	c.runDuration.Observe(elapsed.Seconds())
	for category, counts := range map[models.Category]models.CategorySummary{
		models.CategoryMetaobjects: snap.Metaobjects,
		models.CategoryMetafields:  snap.Metafields,
	} {
		c.definitions.WithLabelValues(string(category), models.StatusCreated).Add(float64(counts.Created))
		c.definitions.WithLabelValues(string(category), models.StatusFailed).Add(float64(counts.Failed))
		c.definitions.WithLabelValues(string(category), models.StatusSkipped).Add(float64(counts.Skipped))
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.definitions.Describe(ch)
	c.runs.Describe(ch)
	c.runDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.definitions.Collect(ch)
	c.runs.Collect(ch)
	c.runDuration.Collect(ch)
}

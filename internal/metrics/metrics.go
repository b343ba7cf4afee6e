// Package metrics exposes ingestion counters on the default prometheus
// registry, scraped through the HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	RunsStarted   prometheus.Counter
	RunsProcessed prometheus.Counter
	RunsFailed    prometheus.Counter

	RowsTransformed *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	FactsInserted   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "usagehub_ingest_runs_started_total",
			Help: "Ingestion runs started.",
		}),
		RunsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "usagehub_ingest_runs_processed_total",
			Help: "Ingestion runs finished with a processed dataset.",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "usagehub_ingest_runs_failed_total",
			Help: "Ingestion runs finished with a failed dataset.",
		}),
		RowsTransformed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "usagehub_rows_transformed_total",
			Help: "Raw rows successfully transformed, by dataset type.",
		}, []string{"dataset_type"}),
		RowsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "usagehub_rows_dropped_total",
			Help: "Rows dropped by per-row transform failures, by dataset type.",
		}, []string{"dataset_type"}),
		FactsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "usagehub_facts_inserted_total",
			Help: "Canonical usage facts inserted, by dataset type.",
		}, []string{"dataset_type"}),
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)

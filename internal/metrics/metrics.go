// Package metrics exposes Prometheus counters for the harvest engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusinessesNew = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_businesses_new_total",
		Help: "Businesses inserted for the first time.",
	})

	BusinessesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_businesses_updated_total",
		Help: "Businesses refreshed on an existing fingerprint.",
	})

	CandidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_candidates_skipped_total",
		Help: "Listing candidates skipped before detail navigation because the fingerprint was already known.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_jobs_completed_total",
		Help: "Crawl jobs that finished successfully.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_jobs_failed_total",
		Help: "Crawl jobs that ended in an error.",
	})

	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_extraction_failures_total",
		Help: "Detail pages that could not be parsed into a business record.",
	})
)

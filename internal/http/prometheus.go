package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

// Story outcomes used as the "outcome" label.
const (
	outcomeCompleted = "completed"
	outcomePartial   = "partial"
	outcomeFailed    = "failed"
)

// promMetrics is the registry served on /metrics. Each server owns its
// registry, so several servers can live in one process.
type promMetrics struct {
	registry *prometheus.Registry

	stories        *prometheus.CounterVec
	issuesCreated  prometheus.Counter
	issuesFailed   prometheus.Counter
	coveragePct    *prometheus.GaugeVec
	coverageFailed prometheus.Counter
}

func newPromMetrics() *promMetrics {
	m := &promMetrics{
		registry: prometheus.NewRegistry(),
		stories: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "casegen",
				Subsystem: "api",
				Name:      "stories_processed_total",
				Help:      "Stories processed through the API by outcome",
			},
			[]string{"outcome"},
		),
		issuesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "api",
			Name:      "issues_created_total",
			Help:      "Test issues created for API requests",
		}),
		issuesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "api",
			Name:      "issues_failed_total",
			Help:      "Test cases whose issue could not be created",
		}),
		coveragePct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "casegen",
				Subsystem: "coverage",
				Name:      "percentage",
				Help:      "Last computed story coverage percentage per project",
			},
			[]string{"project"},
		),
		coverageFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "coverage",
			Name:      "failures_total",
			Help:      "Coverage requests answered with the empty report",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.stories,
		m.issuesCreated,
		m.issuesFailed,
		m.coveragePct,
		m.coverageFailed,
	)
	return m
}

func (m *promMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *promMetrics) observeReport(r pipeline.Report) {
	m.stories.WithLabelValues(outcomeOf(r)).Inc()
	m.issuesCreated.Add(float64(r.CreatedIssues))
	m.issuesFailed.Add(float64(r.FailedIssues))
}

func (m *promMetrics) observeCoverage(r pipeline.CoverageReport) {
	if r.IsEmpty() {
		m.coverageFailed.Inc()
		return
	}
	m.coveragePct.WithLabelValues(r.ProjectKey).Set(r.CoveragePercentage)
}

// outcomeOf classifies a report: failed when nothing was created and errors
// were recorded, partial when some errors were recorded.
func outcomeOf(r pipeline.Report) string {
	switch {
	case len(r.Errors) == 0:
		return outcomeCompleted
	case r.CreatedIssues == 0:
		return outcomeFailed
	default:
		return outcomePartial
	}
}

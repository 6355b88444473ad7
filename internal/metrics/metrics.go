package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ringside"

var (
	// FetchLatency observes every completed fetch attempt.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "latency_seconds",
		Help:      "Duration of completed feed fetch attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})

	// FetchErrors counts failed fetch attempts by error kind.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fetch",
		Name:      "errors_total",
		Help:      "Failed feed fetch attempts.",
	}, []string{"source", "kind"})

	// DomainSyncs counts domain syncs by outcome.
	DomainSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "domain_runs_total",
		Help:      "Domain sync runs by result.",
	}, []string{"domain", "result"})

	// PublishedArticles is the size of each domain's published view.
	PublishedArticles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "published_articles",
		Help:      "Articles in the published view per domain.",
	}, []string{"domain"})

	// PendingDomains is the number of domains queued while offline.
	PendingDomains = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pending_domains",
		Help:      "Domains queued for replay after reconnecting.",
	})

	// QualityScore is the overall score of the latest quality report.
	QualityScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quality",
		Name:      "overall_score",
		Help:      "Overall content quality score in [0,1].",
	})

	// QualityAlerts counts alerts raised by type and severity.
	QualityAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quality",
		Name:      "alerts_total",
		Help:      "Quality alerts raised.",
	}, []string{"type", "severity"})
)

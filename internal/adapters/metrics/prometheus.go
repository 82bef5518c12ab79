package metrics

import (
	"net/http"
	"strconv"
	"tiffsrv/internal/core/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tiffsrv"

// Prometheus implements port.Metrics on its own registry.
type Prometheus struct {
	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	duration    prometheus.Histogram
	deletions   *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	fetchBytes  prometheus.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Conversion requests by outcome and whether an existing output was reused.",
		}, []string{"outcome", "skipped"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Wall clock time of conversions that ran the encoder.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Deletion requests by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_fetches_total",
			Help:      "Source downloads from the object store by result.",
		}, []string{"result"}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_fetch_bytes_total",
			Help:      "Bytes downloaded from the object store.",
		}),
	}

	p.registry.MustRegister(
		p.conversions,
		p.duration,
		p.deletions,
		p.fetches,
		p.fetchBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Prometheus) ObserveConversion(outcome domain.Outcome, skipped bool, elapsed time.Duration) {
	p.conversions.WithLabelValues(outcome.String(), strconv.FormatBool(skipped)).Inc()
	if outcome == domain.OutcomeOK && !skipped {
		p.duration.Observe(elapsed.Seconds())
	}
}

func (p *Prometheus) ObserveDeletion(outcome domain.Outcome) {
	p.deletions.WithLabelValues(outcome.String()).Inc()
}

func (p *Prometheus) ObserveFetch(bytes int64, err error) {
	if err != nil {
		p.fetches.WithLabelValues("error").Inc()
		return
	}
	p.fetches.WithLabelValues("ok").Inc()
	p.fetchBytes.Add(float64(bytes))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

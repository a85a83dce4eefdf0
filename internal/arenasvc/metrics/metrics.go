package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	AttemptsStarted  prometheus.Counter
	AttemptsRejected *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	StoreConflicts   prometheus.Counter
	PublishFailures  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the arena metrics on a private registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_started_total",
			Help:      "Number of game instances started",
		}),
		AttemptsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_rejected_total",
			Help:      "Number of attempt starts rejected by eligibility rules",
		}, []string{"reason"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Number of per-player results applied",
		}, []string{"result"}),
		StoreConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Number of conditional writes lost to a concurrent writer",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Number of change notifications that could not be delivered",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.AttemptsStarted,
		m.AttemptsRejected,
		m.Settlements,
		m.StoreConflicts,
		m.PublishFailures,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

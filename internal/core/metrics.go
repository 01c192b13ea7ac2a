package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for lead operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	mutations     *prometheus.CounterVec
	importRows    *prometheus.CounterVec
	importCommits *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg (the default registerer when nil).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "buyerleads"
	}
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Lead create and update calls by outcome",
		}, []string{"op", "outcome"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Import rows validated, by result",
		}, []string{"result"}),
		importCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "commits_total",
			Help:      "Import commits by outcome",
		}, []string{"outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_duration_seconds",
			Help:      "Latency of store calls made by the service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutations, m.importRows, m.importCommits, m.storeDuration)
	return m
}

func (m *Metrics) observeMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcomeLabel(err)).Inc()
}

func (m *Metrics) observeImportRows(accepted, rejected int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("accepted").Add(float64(accepted))
	m.importRows.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *Metrics) observeImportCommit(err error) {
	if m == nil {
		return
	}
	m.importCommits.WithLabelValues(outcomeLabel(err)).Inc()
}

func (m *Metrics) observeStore(op string, start time.Time) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// outcomeLabel keeps label cardinality fixed.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := MapError(err).Code; code != "" {
		return code
	}
	return "error"
}

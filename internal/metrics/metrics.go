// Package metrics defines the Prometheus collectors exported by daybook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "daybook"

// Metrics groups the collectors updated by the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	TermsSwept      *prometheus.CounterVec
	LinksAttached   *prometheus.CounterVec
	UploadedBytes   prometheus.Counter
	CleanupFailures *prometheus.CounterVec
	OwnersRemoved   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TermsSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terms_swept_total",
			Help:      "Catalog terms deleted after losing their last link.",
		}, []string{"kind"}),
		LinksAttached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_attached_total",
			Help:      "Entry/term links written by sync.",
		}, []string{"kind"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_uploaded_bytes_total",
			Help:      "Bytes accepted by attachment uploads.",
		}),
		CleanupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Best-effort cleanup steps that failed and were skipped.",
		}, []string{"step"}),
		OwnersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "owners_removed_total",
			Help:      "Account purges processed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.TermsSwept, m.LinksAttached, m.UploadedBytes, m.CleanupFailures, m.OwnersRemoved)
	}
	return m
}

func (m *Metrics) Swept(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.TermsSwept.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) Attached(kind string) {
	if m == nil {
		return
	}
	m.LinksAttached.WithLabelValues(kind).Inc()
}

func (m *Metrics) Uploaded(size int64) {
	if m == nil {
		return
	}
	m.UploadedBytes.Add(float64(size))
}

func (m *Metrics) CleanupFailed(step string) {
	if m == nil {
		return
	}
	m.CleanupFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) OwnerRemoved() {
	if m == nil {
		return
	}
	m.OwnersRemoved.Inc()
}

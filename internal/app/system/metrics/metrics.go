// Package metrics exposes Prometheus counters for the lesson lifecycle,
// the catalog export and notification delivery.
//
// A nil *Recorder is valid and records nothing, so handlers and tests may
// run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Export results.
const (
	ExportSucceeded = "success"
	ExportResumed   = "resumed"
	ExportFailed    = "failure"
)

// Notification results.
const (
	NotifyDelivered = "delivered"
	NotifyFailed    = "failed"
)

type Recorder struct {
	transitions   *prometheus.CounterVec
	exports       *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reddinamica",
			Name:      "lesson_transitions_total",
			Help:      "Lesson lifecycle transitions applied, by operation and edge.",
		}, []string{"op", "from", "to"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reddinamica",
			Name:      "catalog_exports_total",
			Help:      "Academic lessons exported to the public catalog, by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reddinamica",
			Name:      "notifications_total",
			Help:      "Notification records written, by type and result.",
		}, []string{"type", "result"}),
	}
	for _, c := range []prometheus.Collector{r.transitions, r.exports, r.notifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Transition(op, from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(op, from, to).Inc()
}

func (r *Recorder) Export(result string) {
	if r == nil {
		return
	}
	r.exports.WithLabelValues(result).Inc()
}

// Notifications adds n to the counter for the given type and result.
func (r *Recorder) Notifications(notifType, result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.notifications.WithLabelValues(notifType, result).Add(float64(n))
}

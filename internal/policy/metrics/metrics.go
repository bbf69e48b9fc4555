package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts policy decisions that ended in a denial.
type Metrics struct {
	Denials *prometheus.CounterVec
}

// New creates and registers the policy metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Denials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_policy_denials_total",
			Help: "Policy denials by resource, action and actor role",
		}, []string{"resource", "action", "role"}),
	}
}

// IncrementDenial records one denied decision.
func (m *Metrics) IncrementDenial(resource, action, role string) {
	m.Denials.WithLabelValues(resource, action, role).Inc()
}

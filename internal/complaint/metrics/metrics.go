package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the complaint module.
type Metrics struct {
	ComplaintsCreated *prometheus.CounterVec
	ComplaintUpdates  *prometheus.CounterVec
}

// New creates and registers the complaint metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ComplaintsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_complaints_created_total",
			Help: "Complaints filed, by category",
		}, []string{"category"}),
		ComplaintUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_complaint_updates_total",
			Help: "Complaint triage updates, by resulting status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementCreated(category string) {
	m.ComplaintsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) IncrementUpdated(status string) {
	m.ComplaintUpdates.WithLabelValues(status).Inc()
}

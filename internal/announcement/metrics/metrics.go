package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the announcement module.
type Metrics struct {
	Published *prometheus.CounterVec
	Changes   *prometheus.CounterVec
}

// New creates and registers the announcement metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_announcements_published_total",
			Help: "Announcements published, by audience (global or department)",
		}, []string{"audience"}),
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_announcement_changes_total",
			Help: "Announcement updates, deactivations and deletions",
		}, []string{"change"}),
	}
}

func (m *Metrics) IncrementPublished(audience string) {
	m.Published.WithLabelValues(audience).Inc()
}

func (m *Metrics) IncrementChange(change string) {
	m.Changes.WithLabelValues(change).Inc()
}

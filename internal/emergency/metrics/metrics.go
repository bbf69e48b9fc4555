package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for SOS requests.
type Metrics struct {
	SOSRaised prometheus.Counter
}

// New creates and registers the emergency metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SOSRaised: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cityconnect_sos_requests_total",
			Help: "SOS requests forwarded to the notification stream",
		}),
	}
}

func (m *Metrics) IncrementSOS() {
	m.SOSRaised.Inc()
}

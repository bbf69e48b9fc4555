package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for job postings.
type Metrics struct {
	Posted  prometheus.Counter
	Changes *prometheus.CounterVec
}

// New creates and registers the job metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Posted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cityconnect_jobs_posted_total",
			Help: "Job postings created",
		}),
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_job_changes_total",
			Help: "Job posting updates, closures and deletions",
		}, []string{"change"}),
	}
}

func (m *Metrics) IncrementPosted() {
	m.Posted.Inc()
}

func (m *Metrics) IncrementChange(change string) {
	m.Changes.WithLabelValues(change).Inc()
}

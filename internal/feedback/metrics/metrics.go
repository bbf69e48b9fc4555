package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks submitted ratings.
type Metrics struct {
	Ratings prometheus.Histogram
}

// New creates and registers the feedback metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Ratings: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "cityconnect_feedback_rating",
			Help:    "Distribution of submitted feedback ratings",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
	}
}

func (m *Metrics) ObserveRating(rating int) {
	m.Ratings.Observe(float64(rating))
}

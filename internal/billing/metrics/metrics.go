package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeConflict  = "conflict"
	OutcomeForbidden = "forbidden"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
)

// Metrics provides observability for bills and settlements.
type Metrics struct {
	BillsCreated       prometheus.Counter
	Settlements        *prometheus.CounterVec
	SettlementDuration prometheus.Histogram
	SettledAmount      prometheus.Counter
}

// New creates and registers the billing metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BillsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cityconnect_bills_created_total",
			Help: "Total number of bills issued",
		}),
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cityconnect_bill_settlements_total",
			Help: "Bill settlement attempts by outcome",
		}, []string{"outcome"}),
		SettlementDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cityconnect_bill_settlement_duration_seconds",
			Help:    "Duration of bill settlement (load, authorize, conditional update)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SettledAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "cityconnect_bill_settled_amount_total",
			Help: "Sum of settled bill amounts in minor currency units",
		}),
	}
}

func (m *Metrics) IncrementBillCreated() {
	m.BillsCreated.Inc()
}

// ObserveSettlement records one settlement attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSettlement(outcome string, start time.Time) {
	m.Settlements.WithLabelValues(outcome).Inc()
	m.SettlementDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddSettledAmount(amount int64) {
	m.SettledAmount.Add(float64(amount))
}

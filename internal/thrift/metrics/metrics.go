package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OpCreateGroup     = "create_group"
	OpJoinGroup       = "join_group"
	OpContribute      = "make_contribution"
	OpDisburse        = "disburse_payout"
	OpInsurancePayout = "fallback_insurance_payout"
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
)

// Metrics provides observability for the thrift ledger.
// Tracks operation outcomes, durations and the value flowing through pools.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Contributed       prometheus.Counter
	InsuranceSkimmed  prometheus.Counter
	PaidOut           prometheus.Counter
	InsurancePaidOut  prometheus.Counter
	EventsPublished   prometheus.Counter
}

// New creates Metrics registered with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates Metrics registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ahorro_thrift_operations_total",
			Help: "Total thrift ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ahorro_thrift_operation_duration_seconds",
			Help:    "Duration of thrift ledger operations including the unit of work",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		Contributed: f.NewCounter(prometheus.CounterOpts{
			Name: "ahorro_thrift_contributed_units_total",
			Help: "Asset units contributed by members across all groups",
		}),
		InsuranceSkimmed: f.NewCounter(prometheus.CounterOpts{
			Name: "ahorro_thrift_insurance_skimmed_units_total",
			Help: "Asset units routed to insurance pools",
		}),
		PaidOut: f.NewCounter(prometheus.CounterOpts{
			Name: "ahorro_thrift_paid_out_units_total",
			Help: "Asset units disbursed from group pools to cycle recipients",
		}),
		InsurancePaidOut: f.NewCounter(prometheus.CounterOpts{
			Name: "ahorro_thrift_insurance_paid_out_units_total",
			Help: "Asset units paid out of insurance pools",
		}),
		EventsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "ahorro_outbox_events_published_total",
			Help: "Ledger events acknowledged by the broker",
		}),
	}
}

// ObserveOperation records the outcome and duration of op.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordContribution records how one contribution was split.
func (m *Metrics) RecordContribution(toGroup, toInsurance uint64) {
	m.Contributed.Add(float64(toGroup + toInsurance))
	m.InsuranceSkimmed.Add(float64(toInsurance))
}

func (m *Metrics) RecordPayout(amount uint64) {
	m.PaidOut.Add(float64(amount))
}

func (m *Metrics) RecordInsurancePayout(amount uint64) {
	m.InsurancePaidOut.Add(float64(amount))
}

// RecordPublished counts n events relayed from the outbox.
func (m *Metrics) RecordPublished(n int) {
	m.EventsPublished.Add(float64(n))
}

package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// Metrics holds the Prometheus collectors for the parking service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	transitions       *prometheus.CounterVec
	logAppendFailures prometheus.Counter
	occupied          *prometheus.GaugeVec
	capacity          *prometheus.GaugeVec
	discrepancies     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "transitions_total",
			Help:      "Slot operations by operation and outcome (committed or rejection reason).",
		}, []string{"operation", "outcome"}),
		logAppendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "log_append_failures_total",
			Help:      "Committed transitions whose log record could not be written.",
		}),
		occupied: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parking",
			Name:      "slots_occupied",
			Help:      "Occupied slots per category.",
		}, []string{"category"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parking",
			Name:      "slots_total",
			Help:      "Resolved slot capacity per category.",
		}, []string{"category"}),
		discrepancies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parking",
			Name:      "reconcile_discrepancies",
			Help:      "Slots reported by the last reconciliation run.",
		}),
	}
	reg.MustRegister(m.transitions, m.logAppendFailures, m.occupied, m.capacity, m.discrepancies)
	return m
}

func (m *Metrics) observeTransition(operation string, committed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "committed"
	if !committed {
		outcome = reason
	}
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeLogFailure() {
	if m == nil {
		return
	}
	m.logAppendFailures.Inc()
}

func (m *Metrics) observeOccupancy(occ []models.Occupancy) {
	if m == nil {
		return
	}
	for _, o := range occ {
		m.occupied.WithLabelValues(string(o.Category)).Set(float64(o.Occupied))
		m.capacity.WithLabelValues(string(o.Category)).Set(float64(o.Total))
	}
}

func (m *Metrics) observeDiscrepancies(n int) {
	if m == nil {
		return
	}
	m.discrepancies.Set(float64(n))
}

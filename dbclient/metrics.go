package dbclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts driver round trips of Database operations, labelled by op.
// A nil *Metrics records nothing.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	return &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gw_dbclient_calls_total",
			Help: "Driver calls made by the database client",
		}, []string{"op"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gw_dbclient_errors_total",
			Help: "Driver calls that failed",
		}, []string{"op"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gw_dbclient_statement_seconds",
			Help:    "Duration of statement executions",
			Buckets: buckets,
		}, []string{"op"}),
	}
}

// Register adds the collectors to reg, e.g. prometheus.DefaultRegisterer
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Calls, m.Errors, m.Duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) count(op string, err error) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op).Inc()
	if err != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.count(op, err)
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

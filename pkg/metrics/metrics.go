package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the pipeline's Prometheus collectors. It is constructed
// against an explicit Registerer and passed to components; there is no
// process-global mutable state here.
type Recorder struct {
	signalsTotal   *prometheus.CounterVec
	decisionsTotal *prometheus.CounterVec
	ordersTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeflow_signals_total",
				Help: "Signals consumed, by timeframe and symbol",
			},
			[]string{"timeframe", "symbol"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeflow_decisions_total",
				Help: "Trading decisions emitted, by action",
			},
			[]string{"action"},
		),
		ordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeflow_orders_total",
				Help: "Orders constructed, by persistence result",
			},
			[]string{"result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradeflow_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"kind"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradeflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(r.signalsTotal, r.decisionsTotal, r.ordersTotal, r.errorsTotal, r.latency)
	return r
}

// NewNop returns a Recorder backed by a throwaway registry. For tests.
func NewNop() *Recorder {
	return New(prometheus.NewRegistry())
}

// RecordSignal counts a consumed signal.
func (r *Recorder) RecordSignal(timeframe, symbol string) {
	r.signalsTotal.WithLabelValues(timeframe, symbol).Inc()
}

// RecordDecision counts an emitted decision.
func (r *Recorder) RecordDecision(action string) {
	r.decisionsTotal.WithLabelValues(action).Inc()
}

// RecordOrder counts a constructed order by persistence result.
func (r *Recorder) RecordOrder(result string) {
	r.ordersTotal.WithLabelValues(result).Inc()
}

// RecordError counts an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency observes operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

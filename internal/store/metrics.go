package store

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsOptions configures the store collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

// Metrics exposes Prometheus collectors for the store access layer.
type Metrics struct {
	ConnectAttempts *prometheus.CounterVec
	Reconnects      prometheus.Counter
	Retries         *prometheus.CounterVec
	OpDuration      *prometheus.HistogramVec
	ConnectionUp    prometheus.Gauge
}

// NewMetrics constructs the store collectors and registers them with the provided registerer.
// Collectors already registered under the same name are reused.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "recruitment"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts partitioned by result.",
		}, []string{"result"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reconnects_total",
			Help:      "Reconnects triggered by a failed liveness ping.",
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Operation retries partitioned by collection and operation.",
		}, []string{"collection", "op"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of repository operations including retries.",
			Buckets:   buckets,
		}, []string{"collection", "op", "outcome"}),
		ConnectionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "connection_up",
			Help:      "1 when the last liveness ping succeeded.",
		}),
	}

	var err error
	if m.ConnectAttempts, err = register(reg, m.ConnectAttempts); err != nil {
		return nil, err
	}
	if m.Reconnects, err = register(reg, m.Reconnects); err != nil {
		return nil, err
	}
	if m.Retries, err = register(reg, m.Retries); err != nil {
		return nil, err
	}
	if m.OpDuration, err = register(reg, m.OpDuration); err != nil {
		return nil, err
	}
	if m.ConnectionUp, err = register(reg, m.ConnectionUp); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// The helpers below accept a nil receiver so callers need no metrics in tests.

func (m *Metrics) connectAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) reconnected() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

func (m *Metrics) setUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.ConnectionUp.Set(1)
	} else {
		m.ConnectionUp.Set(0)
	}
}

// ObserveRetry counts one retry of op on collection.
func (m *Metrics) ObserveRetry(collection, op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(collection, op).Inc()
}

// ObserveOp records the duration and outcome of one repository operation.
func (m *Metrics) ObserveOp(collection, op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.OpDuration.WithLabelValues(collection, op, outcome).Observe(seconds)
}

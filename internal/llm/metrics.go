package llm

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados posibles de una llamada al gateway.
const (
	OutcomeOK        = "ok"
	OutcomeDegraded  = "degraded"
	OutcomeEndpoint  = "endpoint_error"
	OutcomeTransport = "transport_error"
)

// Metrics exporta contadores y latencias del gateway. Un *Metrics nil no registra nada.
type Metrics struct {
	completions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "gateway",
		Name:      "completions_total",
		Help:      "Completions requested to the inference endpoint, by outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat",
		Subsystem: "gateway",
		Name:      "completion_duration_seconds",
		Help:      "Latency of inference calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})

	if err := reg.Register(completions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register gateway metric: %w", err)
		}
		completions = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(latency); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register gateway metric: %w", err)
		}
		latency = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return &Metrics{completions: completions, latency: latency}, nil
}

// MustNewMetrics es NewMetrics que hace panic si el registro falla.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) observe(model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.latency.WithLabelValues(model).Observe(d.Seconds())
}

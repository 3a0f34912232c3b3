package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"battlelog/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes recorded in the outcome label.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the gateway call collectors.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "battlelog",
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Total number of gateway command calls by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "battlelog",
				Subsystem: "gateway",
				Name:      "call_duration_seconds",
				Help:      "Gateway command call latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"command"},
		),
	}
}

type instrumented struct {
	next    Invoker
	metrics *Metrics
}

// Instrument wraps next so every call is counted, timed and logged.
func Instrument(next Invoker, m *Metrics) Invoker {
	return &instrumented{next: next, metrics: m}
}

func (i *instrumented) Invoke(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	start := time.Now()
	raw, err := i.next.Invoke(ctx, command, params)
	elapsed := time.Since(start)

	outcome := OutcomeOK
	switch {
	case err == nil:
		logging.GatewayDebug("%s ok in %v", command, elapsed)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
		logging.GatewayDebug("%s cancelled after %v", command, elapsed)
	default:
		outcome = OutcomeError
		logging.GatewayError("%s failed after %v: %v", command, elapsed, err)
	}

	i.metrics.Calls.WithLabelValues(command, outcome).Inc()
	i.metrics.Duration.WithLabelValues(command).Observe(elapsed.Seconds())
	return raw, err
}

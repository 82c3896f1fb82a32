package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/schema"
)

// Recorder accumulates per-request routing outcomes for logging and
// alerting. It is side-effect only: nothing here feeds back into live
// routing decisions.
type Recorder struct {
	logger zerolog.Logger
	config *config.Store

	requestsTotal     *prometheus.CounterVec
	latencySeconds    *prometheus.HistogramVec
	fallbacksTotal    prometheus.Counter
	degradationsTotal prometheus.Counter
	tokensTotal       prometheus.Counter
}

// NewRecorder creates a recorder registered against reg. A nil reg uses
// the default registerer.
func NewRecorder(logger zerolog.Logger, cfg *config.Store, reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		logger: logger,
		config: cfg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coachflow_routing_requests_total",
			Help: "Routing outcomes by route and result.",
		}, []string{"route", "outcome"}),
		latencySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coachflow_routing_latency_seconds",
			Help:    "End-to-end execution latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coachflow_routing_fallbacks_total",
			Help: "Requests that re-executed on the fallback path.",
		}),
		degradationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coachflow_routing_degradations_total",
			Help: "Requests slower than the configured direct-AI threshold.",
		}),
		tokensTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "coachflow_routing_tokens_total",
			Help: "Total reported token usage.",
		}),
	}
}

// Record logs one routing outcome and checks it against the degradation
// threshold. No-op when monitoring is disabled.
func (r *Recorder) Record(m schema.RoutingMetrics) {
	settings := r.config.Snapshot()
	if !settings.MonitoringEnabled {
		return
	}

	outcome := "success"
	if !m.Success {
		outcome = "failure"
	}
	r.requestsTotal.WithLabelValues(string(m.Route), outcome).Inc()
	r.latencySeconds.WithLabelValues(string(m.Route)).Observe(m.ExecutionTime.Seconds())
	if m.FallbackUsed {
		r.fallbacksTotal.Inc()
	}
	if m.TokenUsage > 0 {
		r.tokensTotal.Add(float64(m.TokenUsage))
	}

	event := r.logger.Info()
	threshold := time.Duration(settings.DirectAITimeoutMs) * time.Millisecond
	degraded := m.ExecutionTime > threshold
	if degraded {
		r.degradationsTotal.Inc()
		event = r.logger.Warn().Dur("threshold", threshold)
	}

	event.
		Str("route", string(m.Route)).
		Dur("execution_time", m.ExecutionTime).
		Bool("success", m.Success).
		Bool("fallback_used", m.FallbackUsed).
		Int("token_usage", m.TokenUsage).
		Float64("confidence", m.Confidence).
		Bool("degraded", degraded).
		Msg("routing outcome")
}

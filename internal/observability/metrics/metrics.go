package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for conversation turns.
type ChatMetrics struct {
	turnsTotal    *prometheus.CounterVec
	fallbackTotal *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total completed conversation turns",
		}, []string{"strategy"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "chat",
			Name:      "llm_fallback_total",
			Help:      "Total assistant calls that returned a static fallback",
		}, []string{"operation"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webchat",
			Subsystem: "chat",
			Name:      "turn_seconds",
			Help:      "Latency of turn dispatch including remote calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.fallbackTotal, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(strategy string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(strategy).Inc()
	m.turnLatency.WithLabelValues(strategy).Observe(seconds)
}

func (m *ChatMetrics) ObserveFallback(operation string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(operation).Inc()
}

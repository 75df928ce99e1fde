package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the message flow.
type BotMetrics struct {
	messagesTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	assistantTotal     *prometheus.CounterVec
	messageLatency     *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "almoco",
			Subsystem: "bot",
			Name:      "messages_total",
			Help:      "Total inbound messages processed",
		}, []string{"status"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "almoco",
			Subsystem: "bot",
			Name:      "cancellations_total",
			Help:      "Total cancellations recorded, by delivery method",
		}, []string{"method"}),
		assistantTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "almoco",
			Subsystem: "bot",
			Name:      "assistant_calls_total",
			Help:      "Total LLM fallback classifications",
		}, []string{"outcome"}),
		messageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "almoco",
			Subsystem: "bot",
			Name:      "message_latency_seconds",
			Help:      "Latency of inbound message processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.cancellationsTotal, m.assistantTotal, m.messageLatency)
	return m
}

func (m *BotMetrics) ObserveMessage(status string, seconds float64) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(status).Inc()
	m.messageLatency.WithLabelValues(status).Observe(seconds)
}

func (m *BotMetrics) ObserveCancellation(method string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(method).Inc()
}

func (m *BotMetrics) ObserveAssistant(outcome string) {
	if m == nil {
		return
	}
	m.assistantTotal.WithLabelValues(outcome).Inc()
}

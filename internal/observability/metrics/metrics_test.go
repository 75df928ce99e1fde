package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBotMetricsObserve(t *testing.T) {
	m := NewBotMetrics(prometheus.NewRegistry())
	m.ObserveMessage("ok", 0.2)
	m.ObserveCancellation("EMAIL")
	m.ObserveAssistant("command")
}

func TestBotMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.ObserveCancellation("DIRECT")
}

func TestBotMetricsNilSafe(t *testing.T) {
	var m *BotMetrics
	m.ObserveMessage("ok", 0.1)
	m.ObserveCancellation("EMAIL")
	m.ObserveAssistant("answer")
}

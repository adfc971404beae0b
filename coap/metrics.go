package coap

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's Prometheus instruments. They default to being
// registered against prometheus.DefaultRegisterer so embedding an endpoint
// in a larger service "just works"; pass a custom *prometheus.Registry to
// NewMetrics to avoid collisions in tests that construct several endpoints.
type Metrics struct {
	Sent             prometheus.Counter
	Received         prometheus.Counter
	Retransmits      prometheus.Counter
	Timeouts         prometheus.Counter
	Resets           prometheus.Counter
	ActiveExchanges  prometheus.Gauge
	ObserveRestarts  prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set. reg may be nil, in
// which case prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "messages_sent_total", Help: "CoAP messages transmitted, including retransmits.",
		}),
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "messages_received_total", Help: "CoAP datagrams received and successfully parsed.",
		}),
		Retransmits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "retransmits_total", Help: "Confirmable message retransmissions.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "timeouts_total", Help: "Exchanges that gave up waiting for a response.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "resets_received_total", Help: "RST messages received from peers.",
		}),
		ActiveExchanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coap", Name: "active_exchanges", Help: "Exchanges currently registered in the response tracker.",
		}),
		ObserveRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coap", Name: "observe_restarts_total", Help: "Observations re-registered after a silence timeout.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Sent, m.Received, m.Retransmits, m.Timeouts, m.Resets, m.ActiveExchanges, m.ObserveRestarts} {
		_ = reg.Register(c)
	}
	return m
}

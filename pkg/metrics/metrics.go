package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solarbridge"

const (
	ResultOk    = "ok"
	ResultError = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RegisterReads   *prometheus.CounterVec
	RegisterValues  *prometheus.GaugeVec
	Polls           *prometheus.CounterVec
	Publishes       *prometheus.CounterVec
	SessionAttempts *prometheus.CounterVec
	LinkUnconfirmed prometheus.Counter
	Restarts        prometheus.Counter
	ControlCommands *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RegisterReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "register_reads_total",
			Help:      "Single holding register reads by result.",
		}, []string{"result"}),
		RegisterValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "register_raw_value",
			Help:      "Last raw value read from a register, unscaled.",
		}, []string{"register"}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed poll cycles by register set.",
		}, []string{"set"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "MQTT publishes by topic and result.",
		}, []string{"topic", "result"}),
		SessionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_attempts_total",
			Help:      "Broker connect attempts by result.",
		}, []string{"result"}),
		LinkUnconfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_unconfirmed_total",
			Help:      "Link establishments that hit the attempt cap without the link coming up.",
		}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_requested_total",
			Help:      "Restart escalations after consecutive broker connect failures.",
		}),
		ControlCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_commands_total",
			Help:      "Inbound control commands by requested state.",
		}, []string{"state"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RegisterReads,
		m.RegisterValues,
		m.Polls,
		m.Publishes,
		m.SessionAttempts,
		m.LinkUnconfirmed,
		m.Restarts,
		m.ControlCommands,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOk
}

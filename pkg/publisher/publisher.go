package publisher

import (
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/telemetry"
)

var ErrPublishTimeout = errors.New("mqtt publish not acknowledged in time")
var ErrUnknownTopic = errors.New("no topic configured for register set")

const DefaultPublishTimeout = 5 * time.Second

// Session is the part of an MQTT client the publisher needs.
type Session interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type Topics struct {
	Current string `json:"current"`
	Daily   string `json:"daily"`
}

type Publisher struct {
	session  Session
	topics   map[poll.TopicSelector]string
	qos      byte
	timeout  time.Duration
	metrics  *metrics.Metrics
	sent     atomic.Uint64
	failures atomic.Uint64
}

type Option func(*Publisher)

func WithQos(qos byte) Option {
	return func(p *Publisher) {
		p.qos = qos
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = timeout
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(session Session, topics Topics, opts ...Option) *Publisher {
	p := &Publisher{
		session: session,
		topics: map[poll.TopicSelector]string{
			poll.CurrentTopic: topics.Current,
			poll.DailyTopic:   topics.Daily,
		},
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends the sample retained on the selected topic. Failures are
// logged and counted, never retried.
func (p *Publisher) Publish(sample telemetry.Sample, selector poll.TopicSelector) error {
	topic, ok := p.topics[selector]
	if !ok || topic == "" {
		p.failures.Inc()
		return ErrUnknownTopic
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		p.observe(topic, err)
		return err
	}

	token := p.session.Publish(topic, p.qos, true, payload)
	if !token.WaitTimeout(p.timeout) {
		err = ErrPublishTimeout
	} else {
		err = token.Error()
	}
	if err != nil {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", topic, "err", err)
	} else {
		klog.V(5).InfoS("Succeed to publish MQTT", "topic", topic, "data", string(payload))
	}
	p.observe(topic, err)
	return err
}

func (p *Publisher) observe(topic string, err error) {
	if err != nil {
		p.failures.Inc()
	} else {
		p.sent.Inc()
	}
	if p.metrics != nil {
		p.metrics.Publishes.WithLabelValues(topic, metrics.Result(err)).Inc()
	}
}

func (p *Publisher) Sent() uint64 {
	return p.sent.Load()
}

func (p *Publisher) Failures() uint64 {
	return p.failures.Load()
}

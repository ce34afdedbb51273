package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/poll"
	"solarbridge/pkg/supervisor"
	"solarbridge/pkg/telemetry"
)

const DefaultLoopDelay = 2 * time.Second

type Connectivity interface {
	EstablishLink(ctx context.Context) supervisor.LinkState
	Ensure(ctx context.Context) error
	State() supervisor.ConnectionState
}

type Collector interface {
	Collect(ctx context.Context, set poll.RegisterSet) telemetry.Sample
}

type Publisher interface {
	Publish(sample telemetry.Sample, selector poll.TopicSelector) error
}

type Feeder interface {
	Feed()
	Feeds() uint64
}

// Bridge runs the poll loop: ensure connectivity, pick the register set,
// read it, publish it, feed the watchdog, wait.
type Bridge struct {
	instanceID   string
	connectivity Connectivity
	scheduler    *poll.Scheduler
	collector    Collector
	publisher    Publisher
	feeder       Feeder
	metrics      *metrics.Metrics
	delay        time.Duration

	polls           atomic.Uint64
	publishFailures atomic.Uint64

	mux        sync.RWMutex
	lastSample *telemetry.Sample
	lastPoll   time.Time
	lastError  string
}

type Option func(*Bridge)

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

func WithDelay(delay time.Duration) Option {
	return func(b *Bridge) {
		b.delay = delay
	}
}

func WithInstanceID(id string) Option {
	return func(b *Bridge) {
		b.instanceID = id
	}
}

func NewBridge(connectivity Connectivity, scheduler *poll.Scheduler, collector Collector, publisher Publisher, feeder Feeder, opts ...Option) *Bridge {
	b := &Bridge{
		connectivity: connectivity,
		scheduler:    scheduler,
		collector:    collector,
		publisher:    publisher,
		feeder:       feeder,
		delay:        DefaultLoopDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run establishes the link once and then loops until ctx is cancelled or a
// restart has been requested.
func (b *Bridge) Run(ctx context.Context) error {
	b.connectivity.EstablishLink(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var runErr error
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if err := b.RunOnce(ctx); err != nil {
			if errors.Is(err, supervisor.ErrRestartRequested) {
				runErr = err
				cancel()
				return
			}
			if ctx.Err() == nil {
				klog.V(2).InfoS("Failed to run poll iteration", "error", err)
			}
		}
	}, b.delay)
	return runErr
}

// RunOnce performs a single iteration without the trailing delay.
func (b *Bridge) RunOnce(ctx context.Context) error {
	if err := b.connectivity.Ensure(ctx); err != nil {
		return err
	}
	b.feeder.Feed()

	set, topic := b.scheduler.Next()
	sample := b.collector.Collect(ctx, set)
	err := b.publisher.Publish(sample, topic)
	b.feeder.Feed()

	b.polls.Inc()
	if err != nil {
		b.publishFailures.Inc()
	}
	b.observe(sample)

	b.mux.Lock()
	b.lastSample = &sample
	b.lastPoll = time.Now()
	b.lastError = ""
	if err != nil {
		b.lastError = err.Error()
	}
	b.mux.Unlock()
	klog.V(4).InfoS("Poll iteration done", "set", set.Name, "failures", sample.Failures(), "published", err == nil)
	return nil
}

func (b *Bridge) observe(sample telemetry.Sample) {
	if b.metrics == nil {
		return
	}
	b.metrics.Polls.WithLabelValues(sample.Set).Inc()
	for _, o := range sample.Outcomes {
		b.metrics.RegisterReads.WithLabelValues(metrics.Result(o.Err)).Inc()
		if o.Ok() {
			b.metrics.RegisterValues.WithLabelValues(o.Register.Name).Set(float64(o.Value))
		}
	}
}

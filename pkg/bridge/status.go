package bridge

import (
	"time"

	"solarbridge/pkg/poll"
	"solarbridge/pkg/supervisor"
	"solarbridge/pkg/telemetry"
)

type Status struct {
	InstanceID       string                     `json:"instanceId"`
	Cycle            poll.PollCycleState        `json:"cycle"`
	Threshold        uint                       `json:"threshold"`
	Connection       supervisor.ConnectionState `json:"connection"`
	Polls            uint64                     `json:"polls"`
	PublishFailures  uint64                     `json:"publishFailures"`
	WatchdogFeeds    uint64                     `json:"watchdogFeeds"`
	LastSet          string                     `json:"lastSet,omitempty"`
	LastPoll         *time.Time                 `json:"lastPoll,omitempty"`
	LastPublishError string                     `json:"lastPublishError,omitempty"`
	LastSample       *telemetry.Sample          `json:"lastSample,omitempty"`
}

// Status returns a snapshot safe to hand to another goroutine.
func (b *Bridge) Status() Status {
	s := Status{
		InstanceID:      b.instanceID,
		Cycle:           b.scheduler.State(),
		Threshold:       b.scheduler.Threshold(),
		Connection:      b.connectivity.State(),
		Polls:           b.polls.Load(),
		PublishFailures: b.publishFailures.Load(),
		WatchdogFeeds:   b.feeder.Feeds(),
	}

	b.mux.RLock()
	defer b.mux.RUnlock()
	if b.lastSample != nil {
		sample := *b.lastSample
		s.LastSample = &sample
		s.LastSet = sample.Set
		t := b.lastPoll
		s.LastPoll = &t
		s.LastPublishError = b.lastError
	}
	return s
}

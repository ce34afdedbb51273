package poll

import (
	"sync"

	"solarbridge/pkg/renogy"
)

const (
	DefaultThreshold uint = 30
	MinThreshold     uint = 2
)

type Mode int8

const (
	Current Mode = iota
	Daily
)

var ModeToString = map[Mode]string{
	Current: "current",
	Daily:   "daily",
}

var StringToMode = map[string]Mode{
	"current": Current,
	"daily":   Daily,
}

func (m Mode) String() string {
	if s, ok := ModeToString[m]; ok {
		return s
	}
	return "unknown"
}

// TopicSelector tells the publisher which configured topic a set belongs on.
type TopicSelector int8

const (
	CurrentTopic TopicSelector = iota
	DailyTopic
)

type RegisterSet struct {
	Name      string
	Topic     TopicSelector
	Registers []renogy.RegisterDescriptor
}

type PollCycleState struct {
	Mode             Mode `json:"mode"`
	TicksSinceSwitch uint `json:"ticksSinceSwitch"`
}

// Scheduler alternates between the current and daily register sets. Every
// threshold-th call selects the daily set exactly once.
type Scheduler struct {
	mu        sync.Mutex
	threshold uint
	state     PollCycleState
	current   RegisterSet
	daily     RegisterSet
}

// NewScheduler builds a scheduler that selects the daily set every threshold
// calls. Zero means DefaultThreshold; anything below MinThreshold is raised to
// it so a daily poll is always followed by a current one.
func NewScheduler(threshold uint) *Scheduler {
	switch {
	case threshold == 0:
		threshold = DefaultThreshold
	case threshold < MinThreshold:
		threshold = MinThreshold
	}
	return &Scheduler{
		threshold: threshold,
		state:     PollCycleState{Mode: Current},
		current: RegisterSet{
			Name:      ModeToString[Current],
			Topic:     CurrentTopic,
			Registers: renogy.CurrentSet(),
		},
		daily: RegisterSet{
			Name:      ModeToString[Daily],
			Topic:     DailyTopic,
			Registers: renogy.DailySet(),
		},
	}
}

// Next advances the cycle by one iteration and returns the set to read. The
// returned Registers slice is a copy owned by the caller.
func (s *Scheduler) Next() (RegisterSet, TopicSelector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.TicksSinceSwitch++
	if s.state.TicksSinceSwitch >= s.threshold {
		s.state.Mode = Daily
		s.state.TicksSinceSwitch = 0
	}

	if s.state.Mode == Daily {
		s.state.Mode = Current
		return s.daily.clone(), s.daily.Topic
	}
	return s.current.clone(), s.current.Topic
}

// State returns a copy of the cycle state. Mode is always the mode the
// next call to Next starts from.
func (s *Scheduler) State() PollCycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Threshold() uint {
	return s.threshold
}

func (r RegisterSet) clone() RegisterSet {
	r.Registers = append([]renogy.RegisterDescriptor(nil), r.Registers...)
	return r
}

package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/utils/randutil"
)

type Feeder interface {
	Feed()
}

type Config struct {
	ClientIDPrefix     string
	InstanceID         string
	AnnounceTopic      string
	AnnouncePayload    string
	ControlTopic       string
	Qos                byte
	LinkAttempts       int
	LinkAttemptDelay   time.Duration
	MaxSessionFailures int
	ReconnectDelay     time.Duration
	PublishTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClientIDPrefix:     DefaultClientIDPrefix,
		AnnounceTopic:      DefaultAnnounceTopic,
		AnnouncePayload:    DefaultAnnouncePayload,
		ControlTopic:       DefaultControlTopic,
		LinkAttempts:       DefaultLinkAttempts,
		LinkAttemptDelay:   DefaultLinkAttemptDelay,
		MaxSessionFailures: DefaultMaxSessionFailures,
		ReconnectDelay:     DefaultReconnectDelay,
		PublishTimeout:     5 * time.Second,
	}
}

// Supervisor keeps the link and the broker session up. Ensure, EstablishLink
// and Service are called from the bridge loop only; State and Publish are
// safe from any goroutine.
type Supervisor struct {
	config    Config
	link      Link
	dialer    SessionDialer
	restarter Restarter
	feeder    Feeder
	control   mqtt.MessageHandler
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string

	mux              sync.RWMutex
	session          Session
	linkState        LinkState
	linkAddress      string
	sessionState     SessionState
	clientID         string
	failures         int
	restartRequested bool
}

type Option func(*Supervisor)

func WithControlHandler(handler mqtt.MessageHandler) Option {
	return func(s *Supervisor) {
		s.control = handler
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

func NewSupervisor(config Config, link Link, dialer SessionDialer, restarter Restarter, feeder Feeder, opts ...Option) *Supervisor {
	s := &Supervisor{
		config:    config,
		link:      link,
		dialer:    dialer,
		restarter: restarter,
		feeder:    feeder,
		sleep:     Sleep,
	}
	s.newID = func() string {
		return fmt.Sprintf("%s-%s", s.config.ClientIDPrefix, randutil.Hex16())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EstablishLink polls the link a bounded number of times, feeding the
// watchdog on every attempt. Hitting the cap is not an error.
func (s *Supervisor) EstablishLink(ctx context.Context) LinkState {
	if err := s.link.Associate(); err != nil {
		klog.V(2).InfoS("Failed to associate link", "error", err)
	}
	attempts := s.config.LinkAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		s.feeder.Feed()
		if up, address := s.link.Up(); up {
			s.setLink(LinkUp, address)
			klog.V(1).InfoS("Link up", "address", address, "attempts", attempt)
			return LinkUp
		}
		if attempt == attempts {
			break
		}
		if err := s.sleep(ctx, s.config.LinkAttemptDelay); err != nil {
			break
		}
	}
	s.setLink(LinkUnconfirmed, "")
	if s.metrics != nil {
		s.metrics.LinkUnconfirmed.Inc()
	}
	klog.InfoS("Link not confirmed, proceeding", "attempts", attempts)
	return LinkUnconfirmed
}

// Ensure returns once a broker session is connected. After
// MaxSessionFailures consecutive failed dials it invokes the restarter once
// and returns ErrRestartRequested; no further dials are made after that.
func (s *Supervisor) Ensure(ctx context.Context) error {
	s.mux.RLock()
	session, restartRequested := s.session, s.restartRequested
	s.mux.RUnlock()
	if restartRequested {
		return ErrRestartRequested
	}
	if session != nil && session.IsConnected() {
		return nil
	}
	if session != nil {
		s.dropSession(session)
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.feeder.Feed()
		clientID := s.newID()
		klog.V(1).InfoS("Attempting MQTT connection", "clientId", clientID)
		session, err := s.dialer.Dial(ctx, clientID)
		if s.metrics != nil {
			s.metrics.SessionAttempts.WithLabelValues(metrics.Result(err)).Inc()
		}
		if err == nil {
			s.onConnected(session, clientID)
			return nil
		}

		failures++
		s.mux.Lock()
		s.failures = failures
		s.mux.Unlock()
		klog.V(1).InfoS("Failed to connect MQTT broker", "clientId", clientID, "failures", failures, "err", err)
		if failures >= s.config.MaxSessionFailures {
			s.mux.Lock()
			s.restartRequested = true
			s.mux.Unlock()
			if s.metrics != nil {
				s.metrics.Restarts.Inc()
			}
			s.restarter.Restart(fmt.Sprintf("%d consecutive broker connect failures", failures))
			return ErrRestartRequested
		}

		s.EstablishLink(ctx)
		if err = s.sleep(ctx, s.config.ReconnectDelay); err != nil {
			return err
		}
	}
}

func (s *Supervisor) onConnected(session Session, clientID string) {
	s.mux.Lock()
	s.session = session
	s.sessionState = SessionConnected
	s.clientID = clientID
	s.failures = 0
	s.mux.Unlock()
	klog.InfoS("MQTT connected", "clientId", clientID)

	if s.config.AnnounceTopic != "" {
		payload := s.config.AnnouncePayload
		if s.config.InstanceID != "" {
			payload = fmt.Sprintf("%s from %s", payload, s.config.InstanceID)
		}
		token := session.Publish(s.config.AnnounceTopic, s.config.Qos, false, payload)
		if !token.WaitTimeout(s.config.PublishTimeout) || token.Error() != nil {
			klog.V(1).InfoS("Failed to publish announcement", "topic", s.config.AnnounceTopic, "err", token.Error())
		}
	}
	if s.config.ControlTopic != "" && s.control != nil {
		token := session.Subscribe(s.config.ControlTopic, s.config.Qos, s.control)
		if !token.WaitTimeout(s.config.PublishTimeout) || token.Error() != nil {
			klog.V(1).InfoS("Failed to subscribe control topic", "topic", s.config.ControlTopic, "err", token.Error())
		}
	}
}

// Service is called between register reads. It never blocks; it only notices
// a session that dropped so the next Ensure reconnects.
func (s *Supervisor) Service() {
	s.mux.RLock()
	session, state := s.session, s.sessionState
	s.mux.RUnlock()
	if session == nil || state != SessionConnected {
		return
	}
	if !session.IsConnected() {
		s.mux.Lock()
		s.sessionState = SessionDisconnected
		s.mux.Unlock()
		klog.InfoS("MQTT session lost", "clientId", s.clientIDSnapshot())
	}
}

// Publish hands the message to the current session.
func (s *Supervisor) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	s.mux.RLock()
	session, state := s.session, s.sessionState
	s.mux.RUnlock()
	if session == nil || state != SessionConnected {
		return &errorToken{err: ErrNoSession}
	}
	return session.Publish(topic, qos, retained, payload)
}

func (s *Supervisor) State() ConnectionState {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return ConnectionState{
		Link:                s.linkState.String(),
		LinkAddress:         s.linkAddress,
		Session:             s.sessionState.String(),
		ClientID:            s.clientID,
		ConsecutiveFailures: s.failures,
		RestartRequested:    s.restartRequested,
	}
}

// Close disconnects the current session, waiting up to quiesce milliseconds
// for in-flight work.
func (s *Supervisor) Close(quiesce uint) {
	s.mux.Lock()
	session := s.session
	s.session = nil
	s.sessionState = SessionDisconnected
	s.mux.Unlock()
	if session != nil {
		session.Disconnect(quiesce)
	}
}

func (s *Supervisor) dropSession(session Session) {
	s.mux.Lock()
	s.session = nil
	s.sessionState = SessionDisconnected
	s.mux.Unlock()
	session.Disconnect(0)
}

func (s *Supervisor) setLink(state LinkState, address string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.linkState = state
	s.linkAddress = address
}

func (s *Supervisor) clientIDSnapshot() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.clientID
}

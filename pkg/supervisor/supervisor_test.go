package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeSession struct {
	connected    bool
	published    map[string]interface{}
	subscribed   []string
	disconnected int
}

func newFakeSession() *fakeSession {
	return &fakeSession{connected: true, published: map[string]interface{}{}}
}

func (f *fakeSession) IsConnected() bool { return f.connected }

func (f *fakeSession) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	f.published[topic] = payload
	return &doneToken{}
}

func (f *fakeSession) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	f.subscribed = append(f.subscribed, topic)
	return &doneToken{}
}

func (f *fakeSession) Disconnect(uint) {
	f.connected = false
	f.disconnected++
}

type fakeDialer struct {
	failFirst int
	dials     []string
	sessions  []*fakeSession
}

func (f *fakeDialer) Dial(_ context.Context, clientID string) (Session, error) {
	f.dials = append(f.dials, clientID)
	if len(f.dials) <= f.failFirst {
		return nil, errors.New("connection refused")
	}
	s := newFakeSession()
	f.sessions = append(f.sessions, s)
	return s, nil
}

type fakeRestarter struct{ reasons []string }

func (f *fakeRestarter) Restart(reason string) { f.reasons = append(f.reasons, reason) }

type countingFeeder struct{ feeds int }

func (c *countingFeeder) Feed() { c.feeds++ }

type fakeLink struct {
	upAfter    int
	checks     int
	associated int
}

func (l *fakeLink) Associate() error {
	l.associated++
	return nil
}

func (l *fakeLink) Up() (bool, string) {
	l.checks++
	if l.upAfter > 0 && l.checks >= l.upAfter {
		return true, "192.168.1.20/24"
	}
	return false, ""
}

type fixture struct {
	link      *fakeLink
	dialer    *fakeDialer
	restarter *fakeRestarter
	feeder    *countingFeeder
	sleeps    []time.Duration
	sup       *Supervisor
}

func newFixture(failFirst int, upAfter int) *fixture {
	f := &fixture{
		link:      &fakeLink{upAfter: upAfter},
		dialer:    &fakeDialer{failFirst: failFirst},
		restarter: &fakeRestarter{},
		feeder:    &countingFeeder{},
	}
	cfg := DefaultConfig()
	cfg.InstanceID = "abc"
	f.sup = NewSupervisor(cfg, f.link, f.dialer, f.restarter, f.feeder,
		WithControlHandler(func(mqtt.Client, mqtt.Message) {}),
		WithSleep(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}))
	return f
}

func TestEnsureConnectsAnnouncesAndSubscribes(t *testing.T) {
	f := newFixture(0, 1)
	require.NoError(t, f.sup.Ensure(context.Background()))

	require.Len(t, f.dialer.sessions, 1)
	s := f.dialer.sessions[0]
	assert.Equal(t, "hello world from abc", s.published[DefaultAnnounceTopic])
	assert.Equal(t, []string{DefaultControlTopic}, s.subscribed)

	state := f.sup.State()
	assert.Equal(t, "connected", state.Session)
	assert.True(t, strings.HasPrefix(state.ClientID, DefaultClientIDPrefix+"-"))

	// already connected: no new dial
	require.NoError(t, f.sup.Ensure(context.Background()))
	assert.Len(t, f.dialer.dials, 1)
}

func TestEnsureRetriesWithLinkReestablishment(t *testing.T) {
	f := newFixture(3, 1)
	require.NoError(t, f.sup.Ensure(context.Background()))

	assert.Len(t, f.dialer.dials, 4)
	assert.Equal(t, 3, f.link.associated)
	assert.Empty(t, f.restarter.reasons)
	assert.Equal(t, 0, f.sup.State().ConsecutiveFailures)
	assert.Equal(t, []time.Duration{DefaultReconnectDelay, DefaultReconnectDelay, DefaultReconnectDelay}, f.sleeps)
}

func TestTenFailuresRestartOnceAndStopDialing(t *testing.T) {
	f := newFixture(1000, 1)

	err := f.sup.Ensure(context.Background())
	assert.Equal(t, ErrRestartRequested, err)
	assert.Len(t, f.dialer.dials, DefaultMaxSessionFailures)
	assert.Len(t, f.restarter.reasons, 1)
	// the link is re-established between failures, not after the last one
	assert.Equal(t, DefaultMaxSessionFailures-1, f.link.associated)

	err = f.sup.Ensure(context.Background())
	assert.Equal(t, ErrRestartRequested, err)
	assert.Len(t, f.dialer.dials, DefaultMaxSessionFailures)
	assert.Len(t, f.restarter.reasons, 1)
	assert.True(t, f.sup.State().RestartRequested)
}

func TestClientIDFreshPerAttempt(t *testing.T) {
	f := newFixture(1000, 1)
	_ = f.sup.Ensure(context.Background())
	for _, id := range f.dialer.dials {
		assert.True(t, strings.HasPrefix(id, DefaultClientIDPrefix+"-"), id)
	}
}

func TestEstablishLinkCapIsABound(t *testing.T) {
	f := newFixture(0, 0)
	state := f.sup.EstablishLink(context.Background())

	assert.Equal(t, LinkUnconfirmed, state)
	assert.Equal(t, DefaultLinkAttempts, f.link.checks)
	assert.Equal(t, DefaultLinkAttempts, f.feeder.feeds)
	assert.Len(t, f.sleeps, DefaultLinkAttempts-1)
	assert.Equal(t, "unconfirmed", f.sup.State().Link)
}

func TestEstablishLinkUp(t *testing.T) {
	f := newFixture(0, 3)
	assert.Equal(t, LinkUp, f.sup.EstablishLink(context.Background()))
	assert.Equal(t, 3, f.link.checks)
	state := f.sup.State()
	assert.Equal(t, "up", state.Link)
	assert.Equal(t, "192.168.1.20/24", state.LinkAddress)
}

func TestServiceNoticesLostSession(t *testing.T) {
	f := newFixture(0, 1)
	require.NoError(t, f.sup.Ensure(context.Background()))
	f.sup.Service()
	assert.Equal(t, "connected", f.sup.State().Session)

	f.dialer.sessions[0].connected = false
	f.sup.Service()
	assert.Equal(t, "disconnected", f.sup.State().Session)
	assert.Equal(t, ErrNoSession, f.sup.Publish("t", 0, true, "x").Error())

	require.NoError(t, f.sup.Ensure(context.Background()))
	assert.Len(t, f.dialer.dials, 2)
	assert.NoError(t, f.sup.Publish("t", 0, true, "x").Error())
	assert.Equal(t, "x", f.dialer.sessions[1].published["t"])
}

func TestEnsureCancelled(t *testing.T) {
	f := newFixture(1000, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.sup.Ensure(ctx), context.Canceled)
	assert.Empty(t, f.dialer.dials)
}

func TestClose(t *testing.T) {
	f := newFixture(0, 1)
	require.NoError(t, f.sup.Ensure(context.Background()))
	f.sup.Close(250)
	assert.Equal(t, 1, f.dialer.sessions[0].disconnected)
	assert.Equal(t, "disconnected", f.sup.State().Session)
}

func TestInterfaceLink(t *testing.T) {
	stats := net.InterfaceStatList{
		{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "wlan0", Flags: []string{"broadcast"}, Addrs: net.InterfaceAddrList{{Addr: "10.0.0.5/24"}}},
	}
	l := NewInterfaceLink("wlan0")
	l.interfaces = func() (net.InterfaceStatList, error) { return stats, nil }

	require.NoError(t, l.Associate())
	up, _ := l.Up()
	assert.False(t, up)

	stats[1].Flags = append(stats[1].Flags, "up")
	stats[1].Addrs = net.InterfaceAddrList{{Addr: "fe80::1/64"}, {Addr: "10.0.0.5/24"}}
	up, addr := l.Up()
	assert.True(t, up)
	assert.Equal(t, "10.0.0.5/24", addr)

	missing := NewInterfaceLink("eth9")
	missing.interfaces = l.interfaces
	assert.ErrorIs(t, missing.Associate(), ErrNoInterface)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestExitRestarter(t *testing.T) {
	exited := 0
	r := &ExitRestarter{exit: func() { exited++ }}
	r.Restart("test")
	assert.Equal(t, 1, exited)
}

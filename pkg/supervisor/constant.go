package supervisor

import (
	"errors"
	"time"
)

var ErrRestartRequested = errors.New("restart requested after consecutive broker connect failures")
var ErrNoSession = errors.New("mqtt session not connected")
var ErrConnectTimeout = errors.New("mqtt connect not acknowledged in time")
var ErrNoInterface = errors.New("network interface not found")

const (
	DefaultLinkAttempts       = 20
	DefaultLinkAttemptDelay   = 500 * time.Millisecond
	DefaultMaxSessionFailures = 10
	DefaultReconnectDelay     = time.Second
	DefaultClientIDPrefix     = "solarbridge"
	DefaultAnnounceTopic      = "outTopic"
	DefaultAnnouncePayload    = "hello world"
	DefaultControlTopic       = "inTopic"
)

type LinkState int8

const (
	LinkUnknown LinkState = iota
	LinkUp
	// LinkUnconfirmed means the attempt cap was reached without the link
	// reporting up. The supervisor carries on and lets the broker dial fail.
	LinkUnconfirmed
)

var LinkStateToString = map[LinkState]string{
	LinkUnknown:     "unknown",
	LinkUp:          "up",
	LinkUnconfirmed: "unconfirmed",
}

func (l LinkState) String() string {
	return LinkStateToString[l]
}

type SessionState int8

const (
	SessionDisconnected SessionState = iota
	SessionConnected
)

var SessionStateToString = map[SessionState]string{
	SessionDisconnected: "disconnected",
	SessionConnected:    "connected",
}

func (s SessionState) String() string {
	return SessionStateToString[s]
}

// ConnectionState is a point-in-time copy of the supervisor's view.
type ConnectionState struct {
	Link                string `json:"link"`
	LinkAddress         string `json:"linkAddress,omitempty"`
	Session             string `json:"session"`
	ClientID            string `json:"clientId,omitempty"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	RestartRequested    bool   `json:"restartRequested"`
}

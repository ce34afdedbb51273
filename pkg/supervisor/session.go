package supervisor

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
)

// Session is the part of an MQTT client the supervisor drives. A connected
// paho mqtt.Client satisfies it.
type Session interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

type SessionDialer interface {
	Dial(ctx context.Context, clientID string) (Session, error)
}

var _ SessionDialer = (*PahoDialer)(nil)

// PahoDialer creates a fresh paho client per attempt. Automatic reconnect is
// disabled because the supervisor owns reconnection and its failure budget.
type PahoDialer struct {
	Broker         string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
}

func (d *PahoDialer) Dial(ctx context.Context, clientID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions().
		AddBroker(d.Broker).
		SetClientID(clientID).
		SetUsername(d.Username).
		SetPassword(d.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(d.ConnectTimeout).
		SetKeepAlive(d.KeepAlive).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			klog.V(1).InfoS("MQTT connection lost", "clientId", clientID, "err", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(d.ConnectTimeout + time.Second) {
		client.Disconnect(0)
		return nil, ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}

// errorToken is a completed token carrying err, returned when there is no
// session to hand a publish to.
type errorToken struct {
	err error
}

var _ mqtt.Token = (*errorToken)(nil)

func (t *errorToken) Wait() bool { return true }

func (t *errorToken) WaitTimeout(time.Duration) bool { return true }

func (t *errorToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *errorToken) Error() error { return t.err }

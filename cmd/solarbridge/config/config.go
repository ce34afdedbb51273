package config

import (
	"context"
	"io"

	utilserrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"solarbridge/pkg/bridge"
	"solarbridge/pkg/control"
	"solarbridge/pkg/metrics"
	"solarbridge/pkg/supervisor"
)

// DisconnectQuiesce is how long, in milliseconds, the broker session may take
// to flush in-flight work on shutdown.
const DisconnectQuiesce = 250

type Config struct {
	Bridge     *bridge.Bridge
	Supervisor *supervisor.Supervisor
	Output     control.Output
	Metrics    *metrics.Metrics
	CertFile   string
	KeyFile    string

	// closed in order on Shutdown, after the session is gone
	Closers []io.Closer
}

func (c *Config) Shutdown(ctx context.Context) error {
	if c.Supervisor != nil {
		c.Supervisor.Close(DisconnectQuiesce)
	}
	var errs []error
	for _, closer := range c.Closers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := closer.Close(); err != nil {
			klog.V(2).InfoS("Failed to close resource", "err", err)
			errs = append(errs, err)
		}
	}
	return utilserrors.NewAggregate(errs)
}

package supervisor

import (
	"k8s.io/klog/v2"
)

// Restarter performs the escalation once the session failure budget is spent.
// Implementations are not expected to return in production.
type Restarter interface {
	Restart(reason string)
}

var _ Restarter = (*ExitRestarter)(nil)

// ExitRestarter exits non-zero and relies on the service manager to start the
// process again.
type ExitRestarter struct {
	exit func()
}

func NewExitRestarter() *ExitRestarter {
	return &ExitRestarter{exit: func() {
		klog.FlushAndExit(klog.ExitFlushTimeout, 1)
	}}
}

func (r *ExitRestarter) Restart(reason string) {
	klog.ErrorS(nil, "Restarting process", "reason", reason)
	r.exit()
}

var Restarters = map[string]func() Restarter{
	"exit":   func() Restarter { return NewExitRestarter() },
	"reboot": func() Restarter { return NewRebootRestarter() },
}

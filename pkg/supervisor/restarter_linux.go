//go:build linux

package supervisor

import (
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// RebootRestarter reboots the whole board, the equivalent of a device reset.
// It needs CAP_SYS_BOOT; without it the process exits instead.
type RebootRestarter struct {
	fallback *ExitRestarter
}

func NewRebootRestarter() *RebootRestarter {
	return &RebootRestarter{fallback: NewExitRestarter()}
}

func (r *RebootRestarter) Restart(reason string) {
	klog.ErrorS(nil, "Rebooting device", "reason", reason)
	klog.Flush()
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		klog.ErrorS(err, "Failed to reboot device")
		r.fallback.Restart(reason)
	}
}

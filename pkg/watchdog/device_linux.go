//go:build linux

package watchdog

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// DeviceFeeder drives a Linux watchdog character device such as /dev/watchdog.
type DeviceFeeder struct {
	counter
	mux  sync.Mutex
	file *os.File
	path string
}

// OpenDevice opens the watchdog device, arming it. A positive timeout is
// programmed with WDIOC_SETTIMEOUT, otherwise the driver default is kept.
func OpenDevice(path string, timeout time.Duration) (*DeviceFeeder, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open watchdog %s", path)
	}
	if timeout > 0 {
		secs := int(timeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		if err = unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
			klog.V(1).InfoS("Failed to set watchdog timeout, keeping driver default", "path", path, "seconds", secs, "error", err)
		}
	}
	klog.V(1).InfoS("Armed hardware watchdog", "path", path)
	d := &DeviceFeeder{file: f, path: path}
	d.Feed()
	return d, nil
}

func (d *DeviceFeeder) Feed() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.file == nil {
		return
	}
	if err := unix.IoctlWatchdogKeepalive(int(d.file.Fd())); err != nil {
		klog.V(2).InfoS("Failed to feed watchdog", "path", d.path, "error", err)
		return
	}
	d.feeds.Inc()
}

// Close disarms the watchdog with the magic close character. Drivers built
// with nowayout ignore it and will still reset the board.
func (d *DeviceFeeder) Close() error {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.file == nil {
		return nil
	}
	if _, err := d.file.Write([]byte("V")); err != nil {
		klog.V(2).InfoS("Failed to write watchdog magic close", "path", d.path, "error", err)
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Package systemd reports service state to systemd over sd_notify.
// Every call is a no-op when the process is not run by systemd.
package systemd

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. The zero value is ready to use.
type Notifier struct{}

// Ready tells systemd that startup finished (Type=notify units).
func (Notifier) Ready() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyReady) }

// Stopping tells systemd that a graceful shutdown started.
func (Notifier) Stopping() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyStopping) }

// Watchdog resets the unit's watchdog timer.
func (Notifier) Watchdog() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyWatchdog) }

// Status sets the free-form status line shown by systemctl status.
func (Notifier) Status(s string) (bool, error) { return daemon.SdNotify(false, "STATUS="+s) }

// WatchdogInterval returns WatchdogSec for this process, or 0 when the
// watchdog is off.
func (Notifier) WatchdogInterval() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) }

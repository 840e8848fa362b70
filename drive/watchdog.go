package drive

import (
	"sync"
	"time"
)

// CMD_TIMEOUT is how long the drive keeps actuating after the last received
// command before it is considered disconnected.
const CMD_TIMEOUT = 5 * time.Second

// Watchdog tracks the time of the last received command. It is polled by
// the control loop, there is no asynchronous timer.
type Watchdog struct {
	lock    sync.Mutex
	lastCmd time.Time
	timeout time.Duration
}

// NewWatchdog seeds the watchdog with the current time so the drive starts
// out connected and only expires if no command ever arrives.
func NewWatchdog(timeout time.Duration) *Watchdog {
	return &Watchdog{
		lastCmd: time.Now(),
		timeout: timeout,
	}
}

// Reset marks a command as received now.
func (w *Watchdog) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.lastCmd = time.Now()
}

// IsConnected reports whether a command arrived within the timeout. Pure
// query, safe to call at any frequency.
func (w *Watchdog) IsConnected() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return time.Since(w.lastCmd) < w.timeout
}

// LastCommand returns when the most recent command was received.
func (w *Watchdog) LastCommand() time.Time {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.lastCmd
}

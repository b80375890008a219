// Package pool provides pooled timers for short waits on simulated links.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// WaitResult tells why Wait returned.
type WaitResult int

const (
	// Woken means a value arrived on the wake channel.
	Woken WaitResult = iota
	// Expired means the duration elapsed.
	Expired
	// Cancelled means the done channel was closed.
	Cancelled
)

func (r WaitResult) String() string {
	switch r {
	case Woken:
		return "woken"
	case Expired:
		return "expired"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Wait blocks until wake receives, done is closed or d elapses. A d of 0 or
// less waits without a time limit.
func Wait(d time.Duration, wake <-chan struct{}, done <-chan struct{}) WaitResult {
	if d <= 0 {
		select {
		case <-wake:
			return Woken
		case <-done:
			return Cancelled
		}
	}

	t := getTimer(d)
	defer putTimer(t)

	select {
	case <-wake:
		return Woken
	case <-t.C:
		return Expired
	case <-done:
		return Cancelled
	}
}

func getTimer(d time.Duration) *time.Timer {
	t, ok := timers.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}
	t.Reset(d)

	return t
}

// putTimer stops t and keeps it for reuse, t must not be used afterwards.
func putTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}

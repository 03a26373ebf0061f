package ui

import (
	"sync"
	"time"
)

const DefaultDismissAfter = 5 * time.Second

// Banner is a transient notification that can be closed.
type Banner interface {
	Close()
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// AutoDismiss closes the banners present when its timer fires. It fires once.
type AutoDismiss struct {
	timer Timer

	mu     sync.Mutex
	fired  bool
	closed int
}

// StartAutoDismiss arms the timer. present is called when it fires and
// returns the banners on the page at that moment.
func StartAutoDismiss(clock Clock, delay time.Duration, present func() []Banner) *AutoDismiss {
	if clock == nil {
		clock = SystemClock{}
	}
	if delay <= 0 {
		delay = DefaultDismissAfter
	}
	a := &AutoDismiss{}
	a.timer = clock.AfterFunc(delay, func() { a.fire(present) })
	return a
}

func (a *AutoDismiss) fire(present func() []Banner) {
	a.mu.Lock()
	if a.fired {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.mu.Unlock()

	var n int
	if present != nil {
		for _, b := range present() {
			b.Close()
			n++
		}
	}
	a.mu.Lock()
	a.closed = n
	a.mu.Unlock()
}

// Stop cancels the timer. It reports false when the timer already fired.
func (a *AutoDismiss) Stop() bool {
	return a.timer.Stop()
}

func (a *AutoDismiss) Fired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fired
}

// Closed returns how many banners the timer closed.
func (a *AutoDismiss) Closed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

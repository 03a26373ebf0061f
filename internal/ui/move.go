package ui

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ShowPolicy decides when the move dialog opens relative to the destination
// fetch.
type ShowPolicy int

const (
	// ShowImmediately opens the dialog as soon as the fetch is issued. The
	// list may still hold the previous destinations while it is visible.
	ShowImmediately ShowPolicy = iota
	// ShowAfterFetch opens the dialog once the fetch has finished, whatever
	// its outcome, and only if no newer request replaced it.
	ShowAfterFetch
)

func (p ShowPolicy) String() string {
	switch p {
	case ShowImmediately:
		return "immediate"
	case ShowAfterFetch:
		return "after-fetch"
	default:
		return fmt.Sprintf("ShowPolicy(%d)", int(p))
	}
}

// ParseShowPolicy accepts "immediate", "after-fetch" or "" (immediate).
func ParseShowPolicy(s string) (ShowPolicy, error) {
	switch s {
	case "", "immediate":
		return ShowImmediately, nil
	case "after-fetch":
		return ShowAfterFetch, nil
	}
	return ShowImmediately, fmt.Errorf("unknown move dialog policy %q", s)
}

// MovePrimer stages a target, refreshes the destination list and opens the
// move dialog.
type MovePrimer struct {
	Form         Stager
	Dialog       Dialog
	Source       DirectorySource
	Destinations *Destinations
	Policy       ShowPolicy
	// Timeout bounds one fetch. Zero means none.
	Timeout time.Duration
	Logger  *log.Logger
}

// Pending tracks one destination fetch.
type Pending struct {
	Target     Target
	Generation uint64

	done    chan struct{}
	err     error
	applied bool
}

// Done is closed once the response was applied or discarded.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err is the fetch error, valid after Done.
func (p *Pending) Err() error {
	<-p.done
	return p.err
}

// Applied reports whether this fetch rebuilt the list. It blocks until Done.
func (p *Pending) Applied() bool {
	<-p.done
	return p.applied
}

// Prime never fails: fetch errors are logged and leave the list untouched.
func (m *MovePrimer) Prime(ctx context.Context, path string) *Pending {
	t := NewTarget(path)
	if m.Form != nil {
		m.Form.Stage(t)
	}
	p := &Pending{Target: t, Generation: m.Destinations.Begin(), done: make(chan struct{})}
	go m.fetch(ctx, p)
	if m.Policy == ShowImmediately {
		m.open(t)
	}
	return p
}

func (m *MovePrimer) fetch(ctx context.Context, p *Pending) {
	defer close(p.done)
	// Runs after the recover below, so a panicking source still opens the
	// dialog.
	defer func() {
		if m.Policy == ShowAfterFetch && m.Destinations.Latest(p.Generation) {
			m.open(p.Target)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			p.err = fmt.Errorf("directory fetch panicked: %v", r)
			m.logf("move: %v", p.err)
		}
	}()

	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	dirs, err := m.Source.Directories(ctx)
	if err != nil {
		p.err = err
		m.logf("move: fetch directories: %v", err)
	} else {
		p.applied = m.Destinations.Apply(p.Generation, dirs)
	}
}

func (m *MovePrimer) open(t Target) {
	if m.Dialog != nil {
		m.Dialog.Open(t)
	}
}

func (m *MovePrimer) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Package monitoring reports errors and panics to an external tracker. The
// package level functions delegate to the monitor set with Init and do
// nothing until then.
package monitoring

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

// Current returns the global monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	Current().CaptureException(err, tags)
}

// Recover captures panics in goroutines. It must be deferred directly.
func Recover() {
	if r := recover(); r != nil {
		m := Current()
		if _, nop := m.(NopMonitor); nop {
			panic(r)
		}
		// Monitors re-panic after reporting; re-raise so they see it.
		func() {
			defer m.Recover()
			panic(r)
		}()
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) { Current().Flush(d) }

// Guard wraps a goroutine body so panics reach the monitor and returned
// errors are captured with a component tag. Context cancellation is not
// reported.
func Guard(component string, fn func() error) func() error {
	return func() error {
		defer Recover()
		err := fn()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			CaptureException(err, map[string]string{"component": component})
		}
		return err
	}
}

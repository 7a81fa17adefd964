package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/monitoring"
)

// Agency is the part of an agency driven by the scheduler.
type Agency interface {
	ID() string
	Process() error
	OnTimePeriodChanged(old, next model.TimePeriod)
}

// PeriodSource reports the current time period.
type PeriodSource interface {
	Period() model.TimePeriod
}

// ErrSkip marks agency errors that do not stop a step, such as a disabled
// agency.
var ErrSkip = errors.New("scheduler: agency skipped")

// Driver ticks every agency. Agencies are processed one after another on the
// driver goroutine.
type Driver struct {
	clock    PeriodSource
	agencies func() []Agency
	tick     time.Duration
	skip     []error
	log      logger.Logger

	mu      sync.Mutex
	last    model.TimePeriod
	started bool
	steps   int
}

// Option configures a Driver.
type Option func(*Driver)

// WithSkippable lists errors returned by Agency.Process that are logged at
// debug level instead of failing the step.
func WithSkippable(errs ...error) Option {
	return func(d *Driver) { d.skip = append(d.skip, errs...) }
}

// New creates a driver. agencies is called on every step so agencies added
// while running are picked up.
func New(clk PeriodSource, agencies func() []Agency, tick time.Duration, log logger.Logger, opts ...Option) *Driver {
	d := &Driver{clock: clk, agencies: agencies, tick: tick, log: logger.OrNop(log)}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Steps returns the number of completed steps.
func (d *Driver) Steps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.steps
}

// Step runs one tick. A period change is delivered to every agency before
// the dispatch passes. Errors of individual agencies are joined.
func (d *Driver) Step() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	agencies := d.agencies()
	p := d.clock.Period()
	if d.started && p != d.last {
		d.log.Infof("time period changed %s -> %s", d.last, p)
		for _, a := range agencies {
			a.OnTimePeriodChanged(d.last, p)
		}
	}
	d.last, d.started = p, true

	var errs []error
	for _, a := range agencies {
		if err := a.Process(); err != nil {
			if d.skippable(err) {
				d.log.Debugf("agency %s skipped: %v", a.ID(), err)
				continue
			}
			errs = append(errs, fmt.Errorf("agency %s: %w", a.ID(), err))
		}
	}
	d.steps++
	return errors.Join(errs...)
}

func (d *Driver) skippable(err error) bool {
	for _, s := range d.skip {
		if errors.Is(err, s) {
			return true
		}
	}
	return errors.Is(err, ErrSkip)
}

// Run steps on every tick until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	if d.tick <= 0 {
		return fmt.Errorf("scheduler: tick must be positive")
	}
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Step(); err != nil {
				d.log.Errorf("scheduler step: %v", err)
				monitoring.CaptureException(err, map[string]string{"component": "scheduler", "period": d.last.String()})
			}
		}
	}
}

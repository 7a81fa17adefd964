// Package clock maps real time onto the simulated day. One game hour lasts a
// configurable amount of real time; the day is split into model.TimePeriods.
package clock

import (
	"errors"
	"time"

	"github.com/kilianp07/calloutsim/core/model"
)

const day = 24 * time.Hour

// Clock converts wall time into game time.
type Clock struct {
	realPerGameHour time.Duration
	start           time.Time
	startOffset     time.Duration
	now             func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the wall clock source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// New returns a clock whose game day starts at startHour when created.
func New(realPerGameHour time.Duration, startHour int, opts ...Option) (*Clock, error) {
	if realPerGameHour <= 0 {
		return nil, errors.New("clock: real time per game hour must be positive")
	}
	if startHour < 0 || startHour > 23 {
		return nil, errors.New("clock: start hour must be in [0,23]")
	}
	c := &Clock{
		realPerGameHour: realPerGameHour,
		startOffset:     time.Duration(startHour) * time.Hour,
		now:             time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.start = c.now()
	return c, nil
}

// Now returns the current wall time.
func (c *Clock) Now() time.Time { return c.now() }

// RealPerGameHour returns the scale factor.
func (c *Clock) RealPerGameHour() time.Duration { return c.realPerGameHour }

// ToGame converts a real duration into game time.
func (c *Clock) ToGame(real time.Duration) time.Duration {
	return time.Duration(float64(real) * float64(time.Hour) / float64(c.realPerGameHour))
}

// ToReal converts a game duration into real time.
func (c *Clock) ToReal(game time.Duration) time.Duration {
	return time.Duration(float64(game) * float64(c.realPerGameHour) / float64(time.Hour))
}

// GameSince returns the game time elapsed since the wall time t.
func (c *Clock) GameSince(t time.Time) time.Duration {
	return c.ToGame(c.now().Sub(t))
}

// Elapsed returns the game time elapsed since the clock was created.
func (c *Clock) Elapsed() time.Duration { return c.GameSince(c.start) }

// TimeOfDay returns the game time since midnight.
func (c *Clock) TimeOfDay() time.Duration {
	return (c.startOffset + c.Elapsed()) % day
}

// Hour returns the current game hour.
func (c *Clock) Hour() int { return int(c.TimeOfDay() / time.Hour) }

// Period returns the current time period.
func (c *Clock) Period() model.TimePeriod { return model.PeriodForHour(c.Hour()) }

// GameUntilNextPeriod returns the game time left in the current period.
func (c *Clock) GameUntilNextPeriod() time.Duration {
	tod := c.TimeOfDay()
	next := time.Duration(c.Period().StartHour()+model.PeriodHours) * time.Hour
	return next - tod
}

// UntilNextPeriod returns the real time left in the current period.
func (c *Clock) UntilNextPeriod() time.Duration { return c.ToReal(c.GameUntilNextPeriod()) }

// PeriodLength returns the real duration of one full period.
func (c *Clock) PeriodLength() time.Duration {
	return c.ToReal(model.PeriodHours * time.Hour)
}

// NearPeriodChange reports whether the next period starts within the game
// duration window.
func (c *Clock) NearPeriodChange(window time.Duration) bool {
	return window > 0 && c.GameUntilNextPeriod() <= window
}

package app

import (
	"context"
	"time"

	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/world"
)

// ResponderConfig sets the simulated travel speed and time on scene.
type ResponderConfig struct {
	// SpeedMPS is the travel speed in meters per game second.
	SpeedMPS float64
	// SceneTime is the game time a unit spends on scene.
	SceneTime time.Duration
	// MinTravel is the shortest game time of a trip.
	MinTravel time.Duration
}

// DefaultResponderConfig is used by the offline simulation.
var DefaultResponderConfig = ResponderConfig{
	SpeedMPS:  12,
	SceneTime: 40 * time.Minute,
	MinTravel: 3 * time.Minute,
}

type engagement struct {
	call    int64
	since   time.Time
	arrived bool
}

// Responder stands in for the world that moves units: it reports units as
// arrived once they could have driven to the call and as done after
// SceneTime on scene.
type Responder struct {
	reg   *world.Registry
	clock world.Clock
	cfg   ResponderConfig
	log   logger.Logger

	active map[string]*engagement
}

// NewResponder creates a responder driving every unit of reg.
func NewResponder(reg *world.Registry, cfg ResponderConfig, log logger.Logger) *Responder {
	if cfg.SpeedMPS <= 0 {
		cfg.SpeedMPS = DefaultResponderConfig.SpeedMPS
	}
	return &Responder{
		reg:    reg,
		clock:  reg.Clock(),
		cfg:    cfg,
		log:    logger.OrNop(log),
		active: make(map[string]*engagement),
	}
}

func (r *Responder) travel(from, to model.Location) time.Duration {
	d := time.Duration(from.DistanceTo(to) / r.cfg.SpeedMPS * float64(time.Second))
	return max(d, r.cfg.MinTravel)
}

// Step advances every engaged unit. It must not run concurrently with itself.
func (r *Responder) Step() {
	seen := make(map[string]bool)
	for _, ag := range r.reg.Agencies() {
		ro := ag.Roster()
		if ro == nil {
			continue
		}
		for _, u := range ro.OnDuty() {
			a := u.Assignment()
			if a == nil || a.Call == nil {
				continue
			}
			seen[u.ID] = true
			r.advance(u, a.Call)
		}
	}
	for id := range r.active {
		if !seen[id] {
			delete(r.active, id)
		}
	}
}

func (r *Responder) advance(u *model.Unit, c *model.Call) {
	e, ok := r.active[u.ID]
	if !ok || e.call != c.ID {
		e = &engagement{call: c.ID, since: r.clock.Now(), arrived: u.Status() == model.UnitOnScene}
		r.active[u.ID] = e
		return
	}
	elapsed := r.clock.GameSince(e.since)
	switch {
	case !e.arrived && elapsed >= r.travel(u.Location(), c.Location):
		if err := r.reg.UnitArrived(u.ID); err != nil {
			r.log.Debugf("unit %s arrival: %v", u.ID, err)
			return
		}
		u.SetLocation(c.Location)
		e.arrived, e.since = true, r.clock.Now()
	case e.arrived && elapsed >= r.cfg.SceneTime:
		if err := r.reg.UnitCompleted(u.ID); err != nil {
			r.log.Debugf("unit %s completion: %v", u.ID, err)
			return
		}
		delete(r.active, u.ID)
	}
}

// Run steps every tick until ctx is cancelled.
func (r *Responder) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Step()
		}
	}
}

package world

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"

	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/generator"
	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
)

// AgencySpec describes an agency to register.
type AgencySpec struct {
	ID         string
	Name       string
	Callsign   int
	ZoneIDs    []string
	StaffLevel roster.StaffLevel
}

// Agency aggregates a roster, a dispatcher and a call generator over a set of
// zones. It is built disabled.
type Agency struct {
	spec  AgencySpec
	zones []*model.Zone
	world *Registry
	log   logger.Logger

	mu         sync.Mutex
	enabled    bool
	roster     *roster.Roster
	dispatcher *dispatch.Dispatcher
	generator  *generator.Generator
	extra      []*model.Unit
	cancel     context.CancelFunc
	done       chan struct{}
}

// ID returns the agency id.
func (a *Agency) ID() string { return a.spec.ID }

// Name returns the display name.
func (a *Agency) Name() string { return a.spec.Name }

// Zones returns the zones served by the agency.
func (a *Agency) Zones() []*model.Zone { return append([]*model.Zone(nil), a.zones...) }

// StaffLevel returns the configured staffing.
func (a *Agency) StaffLevel() roster.StaffLevel { return a.spec.StaffLevel }

// Enabled reports whether the agency is running.
func (a *Agency) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Dispatcher returns the dispatcher of an enabled agency or nil.
func (a *Agency) Dispatcher() *dispatch.Dispatcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dispatcher
}

// Roster returns the roster of an enabled agency or nil.
func (a *Agency) Roster() *roster.Roster {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roster
}

// Generator returns the generator of an enabled agency or nil.
func (a *Agency) Generator() *generator.Generator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generator
}

// AddUnit rosters an extra unit, typically the externally driven one. It is
// kept across Disable and Enable.
func (a *Agency) AddUnit(u *model.Unit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, x := range a.extra {
		if x.ID == u.ID {
			return fmt.Errorf("%w: unit %s", ErrDuplicate, u.ID)
		}
	}
	a.extra = append(a.extra, u)
	if a.roster != nil {
		return a.roster.AddUnit(u)
	}
	return nil
}

func (a *Agency) rng(salt uint64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a.spec.ID))
	return rand.New(rand.NewPCG(a.world.seed^salt, h.Sum64()))
}

// Enable builds the roster and the dispatcher, brings the current shift on
// duty and starts the generator. The generator stops when ctx is cancelled or
// the agency is disabled.
func (a *Agency) Enable(ctx context.Context) error {
	a.mu.Lock()
	if a.enabled {
		a.mu.Unlock()
		return ErrAgencyEnabled
	}
	w := a.world
	r, err := roster.New(a.spec.ID, a.spec.Callsign, a.zones, a.spec.StaffLevel, w.cfg.Roster, a.rng(1), w.log)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	for _, u := range a.extra {
		if err := r.AddUnit(u); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	d, err := dispatch.New(a.spec.ID, r, w.clock, w.hub, w.cfg.Dispatch, w.log)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	g, err := generator.New(a.spec.ID, a.zones, d, w.ids, w.clock, w.cfg.Generator, a.rng(2), w.log)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	g.RollCrimeLevel()
	period := w.clock.Period()
	rot, err := r.Start(period)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	genCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.roster, a.dispatcher, a.generator = r, d, g
	a.cancel, a.done = cancel, done
	a.enabled = true
	a.mu.Unlock()

	a.emitRotation(rot)
	go func() {
		defer close(done)
		_ = g.Run(genCtx)
	}()
	a.log.Infof("agency %s enabled: %d units on duty for %s, crime level %s",
		a.spec.ID, len(r.OnDuty()), period, g.Level())
	return nil
}

// Disable stops the generator, waits for it to exit, disposes the dispatcher
// and takes the roster off duty.
func (a *Agency) Disable() error {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return ErrAgencyDisabled
	}
	a.enabled = false
	cancel, done := a.cancel, a.done
	d, r := a.dispatcher, a.roster
	a.dispatcher, a.roster, a.generator = nil, nil, nil
	a.mu.Unlock()

	cancel()
	<-done
	if err := d.Dispose(); err != nil {
		return err
	}
	changes, err := r.Dispose()
	if err != nil {
		return err
	}
	for _, ch := range changes {
		a.world.hub.EmitUnitStatus(a.spec.ID, ch)
	}
	a.log.Infof("agency %s disabled", a.spec.ID)
	return nil
}

// Process runs one dispatcher tick.
func (a *Agency) Process() error {
	d := a.Dispatcher()
	if d == nil {
		return ErrAgencyDisabled
	}
	return d.Process()
}

// OnTimePeriodChanged re-rolls the crime level and rotates the roster.
func (a *Agency) OnTimePeriodChanged(old, next model.TimePeriod) {
	a.mu.Lock()
	g, r := a.generator, a.roster
	a.mu.Unlock()
	if g == nil || r == nil {
		return
	}
	g.OnTimePeriodChanged(old, next)
	rot, err := r.Rotate(old, next)
	if err != nil {
		a.log.Warnf("agency %s: rotate %s -> %s: %v", a.spec.ID, old, next, err)
		return
	}
	a.emitRotation(rot)
}

func (a *Agency) emitRotation(rot roster.Rotation) {
	hub := a.world.hub
	for _, ch := range rot.Changes {
		hub.EmitUnitStatus(a.spec.ID, ch)
	}
	hub.EmitShift(events.ShiftEvent{
		AgencyID:  a.spec.ID,
		Old:       rot.Old,
		New:       rot.New,
		Activated: rot.Activated,
		Relieved:  rot.Relieved,
		Shortfall: rot.Shortfall,
	})
}

func (a *Agency) rosterUnit(unitID string) (*dispatch.Dispatcher, *model.Unit, error) {
	a.mu.Lock()
	d, r := a.dispatcher, a.roster
	a.mu.Unlock()
	if d == nil || r == nil {
		return nil, nil, ErrAgencyDisabled
	}
	u, ok := r.Unit(unitID)
	if !ok {
		return nil, nil, fmt.Errorf("agency %s: unknown unit %s", a.spec.ID, unitID)
	}
	return d, u, nil
}

// AssignDuty puts an idle unit of the agency on a non-call duty. Calls more
// urgent than the duty priority may still pull the unit away.
func (a *Agency) AssignDuty(unitID string, duty model.Duty) error {
	d, u, err := a.rosterUnit(unitID)
	if err != nil {
		return err
	}
	return d.AssignDuty(u, duty)
}

// ClearDuty ends the non-call duty of a unit.
func (a *Agency) ClearDuty(unitID string) error {
	d, u, err := a.rosterUnit(unitID)
	if err != nil {
		return err
	}
	return d.ClearDuty(u)
}

// Stats is a point-in-time summary of an agency.
type Stats struct {
	ID         string `json:"id"`
	Enabled    bool   `json:"enabled"`
	Period     string `json:"period,omitempty"`
	CrimeLevel string `json:"crime_level,omitempty"`
	OnDuty     int    `json:"on_duty"`
	Idle       int    `json:"idle"`
	Queued     int    `json:"queued"`
	Waiting    int    `json:"waiting"`
}

// Stats returns the current summary. Only ID is set for a disabled agency.
func (a *Agency) Stats() Stats {
	a.mu.Lock()
	d, r, g, enabled := a.dispatcher, a.roster, a.generator, a.enabled
	a.mu.Unlock()
	s := Stats{ID: a.spec.ID, Enabled: enabled}
	if !enabled {
		return s
	}
	s.Period = r.Current().String()
	s.CrimeLevel = g.Level().String()
	for _, u := range r.OnDuty() {
		s.OnDuty++
		if u.IsIdle() {
			s.Idle++
		}
	}
	for _, c := range d.Snapshot() {
		s.Queued++
		if len(c.Units) < c.Required {
			s.Waiting++
		}
	}
	return s
}

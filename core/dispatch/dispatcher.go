// Package dispatch owns the call queue of one agency and assigns units to
// open calls by priority, proximity and preemption tier.
package dispatch

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
)

// Clock exposes the game time used by the scheduling tick.
type Clock interface {
	Now() time.Time
	GameSince(time.Time) time.Duration
	NearPeriodChange(window time.Duration) bool
}

// UnitProvider returns the agency roster.
type UnitProvider interface {
	Units() []*model.Unit
}

// Emitter receives lifecycle events. *events.Hub implements it.
type Emitter interface {
	EmitCall(events.CallEvent)
	EmitUnitStatus(agencyID string, ch model.StatusChange)
}

// Dispatcher owns the call queue of one agency. Every mutation happens under
// a single mutex; events are queued while it is held and delivered after it
// is released so listeners may call back into the dispatcher.
type Dispatcher struct {
	agencyID string
	units    UnitProvider
	clock    Clock
	emit     Emitter
	policy   *Policy
	cfg      Config
	log      logger.Logger

	mu       sync.Mutex
	queue    []*model.Call
	disposed bool
	outbox   []func()
}

// New creates a dispatcher for agencyID.
func New(agencyID string, units UnitProvider, clk Clock, emit Emitter, cfg Config, log logger.Logger) (*Dispatcher, error) {
	cfg.SetDefaults()
	policy, err := NewPolicy(cfg.Preemption)
	if err != nil {
		return nil, err
	}
	if units == nil || clk == nil || emit == nil {
		return nil, fmt.Errorf("dispatch: units, clock and emitter are required")
	}
	return &Dispatcher{
		agencyID: agencyID,
		units:    units,
		clock:    clk,
		emit:     emit,
		policy:   policy,
		cfg:      cfg,
		log:      logger.OrNop(log),
	}, nil
}

// AgencyID returns the owning agency id.
func (d *Dispatcher) AgencyID() string { return d.agencyID }

// Policy returns the preemption policy in use.
func (d *Dispatcher) Policy() *Policy { return d.policy }

// unlock releases the mutex and delivers queued events.
func (d *Dispatcher) unlock() {
	out := d.outbox
	d.outbox = nil
	callsQueued.WithLabelValues(d.agencyID).Set(float64(len(d.queue)))
	d.mu.Unlock()
	for _, fn := range out {
		fn()
	}
}

func (d *Dispatcher) later(fn func()) { d.outbox = append(d.outbox, fn) }

func (d *Dispatcher) laterCall(t events.CallEventType, c *model.Call, reason string) {
	e := events.CallEvent{Type: t, Call: c, AgencyID: d.agencyID, Reason: reason, At: d.clock.Now()}
	d.later(func() { d.emit.EmitCall(e) })
}

func (d *Dispatcher) laterUnit(ch model.StatusChange) {
	if !ch.Changed() {
		return
	}
	agency := ch.Unit.AgencyID
	if agency == "" {
		agency = d.agencyID
	}
	d.later(func() { d.emit.EmitUnitStatus(agency, ch) })
}

func (d *Dispatcher) indexOf(c *model.Call) int { return slices.Index(d.queue, c) }

// AddCall queues a fully built call.
func (d *Dispatcher) AddCall(c *model.Call) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if c == nil {
		return fmt.Errorf("%w: nil call", ErrMalformedCall)
	}
	if c.Zone == nil {
		return fmt.Errorf("%w: call %d has no zone", ErrMalformedCall, c.ID)
	}
	if c.Ended() {
		return fmt.Errorf("%w: call %d already ended", ErrMalformedCall, c.ID)
	}
	if d.indexOf(c) >= 0 || !c.Claim(d.agencyID) {
		return fmt.Errorf("%w: call %d owned by %q", ErrCallOwned, c.ID, c.Owner())
	}
	d.queue = append(d.queue, c)
	d.laterCall(events.CallAdded, c, "")
	return nil
}

// RemoveCall cancels a queued call.
func (d *Dispatcher) RemoveCall(c *model.Call) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if c == nil || d.indexOf(c) < 0 {
		return ErrCallNotFound
	}
	d.finish(c, model.CallCancelled, events.CallCancelled)
	return nil
}

// Calls returns the queued calls in arrival order.
func (d *Dispatcher) Calls() []*model.Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.queue)
}

// Len returns the queue length.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Disposed reports whether Dispose was called.
func (d *Dispatcher) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose drops every queued call without firing lifecycle hooks. Units lent
// by other agencies are released back to their owners. Further operations
// fail with ErrDisposed.
func (d *Dispatcher) Dispose() error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	d.disposed = true
	for _, c := range d.queue {
		c.ClearEndedHooks()
		c.Disown(d.agencyID)
		for _, u := range c.Units() {
			if u.AgencyID == d.agencyID {
				continue
			}
			c.Detach(u)
			d.laterUnit(u.Release())
		}
	}
	d.log.Infof("dispatcher %s disposed with %d queued calls", d.agencyID, len(d.queue))
	d.queue = nil
	return nil
}

// Process runs one scheduling tick: expire stale routine calls, then assign
// units to calls needing them in priority order and raise the urgent calls
// still short of units.
func (d *Dispatcher) Process() error {
	start := time.Now()
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	d.sweepExpired()
	d.assignPending()
	processDuration.WithLabelValues(d.agencyID).Observe(time.Since(start).Seconds())
	return nil
}

func (d *Dispatcher) sweepExpired() {
	limit := d.cfg.RoutineExpiry()
	for _, c := range slices.Clone(d.queue) {
		if c.Priority != model.PriorityRoutine {
			continue
		}
		if d.clock.GameSince(c.CreatedAt) < limit || c.AnyOnScene() {
			continue
		}
		d.finish(c, model.CallExpired, events.CallExpired)
	}
}

// pending returns the calls needing units ordered by priority then age.
func (d *Dispatcher) pending() []*model.Call {
	var res []*model.Call
	for _, c := range d.queue {
		if c.NeedsUnits() && !c.Status().Terminal() {
			res = append(res, c)
		}
	}
	slices.SortStableFunc(res, func(a, b *model.Call) int {
		return cmp.Or(
			model.ComparePriority(a.Priority, b.Priority),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return res
}

func (d *Dispatcher) assignPending() {
	suppressRoutine := d.clock.NearPeriodChange(d.cfg.TurnoverWindow())
	roster := d.units.Units()
	for _, c := range d.pending() {
		if suppressRoutine && c.Priority == model.PriorityRoutine {
			continue
		}
		d.safely(c, func() { d.serve(c, roster) })
	}
}

// safely runs fn and turns a panic into a skipped call.
func (d *Dispatcher) safely(c *model.Call, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			processPanics.WithLabelValues(d.agencyID).Inc()
			d.log.Errorf("dispatch %s: call %d zone %s scenario %s skipped: %v",
				d.agencyID, c.ID, c.ZoneID(), c.Scenario, r)
		}
	}()
	fn()
}

func (d *Dispatcher) serve(c *model.Call, roster []*model.Unit) {
	if need := c.Remaining(); need > 0 {
		for _, cand := range d.candidates(c, roster) {
			if need == 0 {
				break
			}
			d.attach(c, cand.unit)
			need--
		}
	}
	if !c.NeedsUnits() {
		return
	}
	if reason, ok := d.raiseReason(c); ok {
		raises.WithLabelValues(d.agencyID, reason).Inc()
		d.laterCall(events.CallRaised, c, reason)
	}
}

type candidate struct {
	unit *model.Unit
	tier Tier
	dist float64
}

// candidates builds the priority pool of c: eligible units sorted by tier,
// then distance to the call.
func (d *Dispatcher) candidates(c *model.Call, roster []*model.Unit) []candidate {
	var pool []candidate
	for _, u := range roster {
		if !u.OnDuty() || c.HasUnit(u) || c.HasDeclined(u.ID) {
			continue
		}
		tier := d.tierFor(c, u)
		if tier == TierIneligible {
			continue
		}
		pool = append(pool, candidate{unit: u, tier: tier, dist: u.Location().DistanceTo(c.Location)})
	}
	slices.SortFunc(pool, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.tier, a.tier),
			cmp.Compare(a.dist, b.dist),
			cmp.Compare(a.unit.ID, b.unit.ID),
		)
	})
	return pool
}

func (d *Dispatcher) tierFor(c *model.Call, u *model.Unit) Tier {
	if u.IsIdle() {
		return TierVeryHigh
	}
	// The externally driven unit is only offered calls while idle.
	if !u.IsAIUnit {
		return TierIneligible
	}
	a := u.Assignment()
	if a == nil || a.Call == c {
		return TierIneligible
	}
	// Only preempt work this dispatcher controls.
	if a.Call != nil && a.Call.Owner() != d.agencyID {
		return TierIneligible
	}
	return d.policy.Tier(c.Priority, a.Priority(), a.OnScene)
}

func (d *Dispatcher) attach(c *model.Call, u *model.Unit) {
	if prev := u.Assignment(); prev != nil && prev.Call != nil && prev.Call != c {
		old := prev.Call
		old.Detach(u)
		if old.UnitCount() == 0 && !old.Status().Terminal() {
			old.SetStatus(model.CallCreated)
		}
		preemptions.WithLabelValues(d.agencyID).Inc()
		d.log.Debugw("unit preempted", map[string]any{
			"agency":   d.agencyID,
			"unit":     u.ID,
			"from":     old.ID,
			"to":       c.ID,
			"priority": c.Priority.String(),
		})
	}
	d.laterUnit(u.Assign(model.Assignment{Call: c}))
	c.Attach(u)
	assignments.WithLabelValues(d.agencyID, c.Priority.String()).Inc()
	if c.Status() == model.CallCreated {
		c.SetStatus(model.CallDispatched)
		d.laterCall(events.CallDispatched, c, "")
	}
}

func (d *Dispatcher) raiseReason(c *model.Call) (string, bool) {
	switch c.Priority {
	case model.PriorityImmediate, model.PriorityEmergency:
		if c.UnitCount() == 0 {
			return events.ReasonNoUnits, true
		}
		return events.ReasonInsufficientUnits, true
	case model.PriorityExpedited:
		if c.UnitCount() == 0 && d.clock.GameSince(c.CreatedAt) > d.cfg.ExpeditedRaiseAfter() {
			return events.ReasonExpeditedStale, true
		}
	}
	return "", false
}

// finish moves c to a final status, releases its units and drops it from the
// queue. Hooks and events fire once, after the mutex is released.
func (d *Dispatcher) finish(c *model.Call, status model.CallStatus, t events.CallEventType) {
	if i := d.indexOf(c); i >= 0 {
		d.queue = slices.Delete(d.queue, i, i+1)
	}
	if !c.End(status) {
		return
	}
	c.Disown(d.agencyID)
	for _, u := range c.Units() {
		c.Detach(u)
		if a := u.Assignment(); a != nil && a.Call == c {
			d.laterUnit(u.Release())
		}
	}
	callsEnded.WithLabelValues(d.agencyID, status.String()).Inc()
	d.laterCall(t, c, "")
	d.later(c.NotifyEnded)
}

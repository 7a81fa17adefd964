package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/model"
)

// ownedCall returns the call u is working if this dispatcher owns it.
func (d *Dispatcher) ownedCall(u *model.Unit) (*model.Call, error) {
	if u == nil {
		return nil, ErrUnitNotAttached
	}
	a := u.Assignment()
	if a == nil || a.Call == nil {
		return nil, fmt.Errorf("%w: unit %s", ErrUnitNotAttached, u.ID)
	}
	if d.indexOf(a.Call) < 0 {
		return nil, fmt.Errorf("%w: call %d", ErrCallNotFound, a.Call.ID)
	}
	return a.Call, nil
}

// UnitArrived records that u reached its call.
func (d *Dispatcher) UnitArrived(u *model.Unit) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	c, err := d.ownedCall(u)
	if err != nil {
		return err
	}
	ch, _ := u.MarkOnScene()
	d.laterUnit(ch)
	switch c.Status() {
	case model.CallCreated, model.CallDispatched:
		c.SetStatus(model.CallOnScene)
		d.laterCall(events.CallOnScene, c, "")
	}
	return nil
}

// UnitCompleted records that u finished its work on the call. The primary
// unit completes the call; other units clear it and become available.
func (d *Dispatcher) UnitCompleted(u *model.Unit) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	c, err := d.ownedCall(u)
	if err != nil {
		return err
	}
	if c.Primary() == u {
		if c.Status() != model.CallOnScene {
			return fmt.Errorf("%w: call %d", ErrNotOnScene, c.ID)
		}
		d.finish(c, model.CallCompleted, events.CallCompleted)
		return nil
	}
	c.Clear(u)
	d.laterUnit(u.Release())
	return nil
}

// DeclineCall records that u refuses c. The unit is never offered c again and
// is detached if it was already assigned.
func (d *Dispatcher) DeclineCall(u *model.Unit, c *model.Call) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if c == nil || u == nil || d.indexOf(c) < 0 {
		return ErrCallNotFound
	}
	c.Decline(u.ID)
	if c.Detach(u) {
		d.laterUnit(u.Release())
		if c.UnitCount() == 0 && !c.Status().Terminal() {
			c.SetStatus(model.CallCreated)
		}
	}
	return nil
}

// AttachUnit adds an idle unit to c outside the scheduling tick. It serves
// mutual aid and operator driven assignment.
func (d *Dispatcher) AttachUnit(c *model.Call, u *model.Unit) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if c == nil || d.indexOf(c) < 0 {
		return ErrCallNotFound
	}
	if u == nil || !u.IsIdle() || c.HasDeclined(u.ID) {
		return ErrUnitUnavailable
	}
	d.attach(c, u)
	return nil
}

// AssignDuty puts an idle unit on a non-call duty.
func (d *Dispatcher) AssignDuty(u *model.Unit, duty model.Duty) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if u == nil || !u.IsIdle() {
		return ErrUnitUnavailable
	}
	d.laterUnit(u.Assign(model.Assignment{Duty: &duty}))
	return nil
}

// ClearDuty ends the non-call duty of u.
func (d *Dispatcher) ClearDuty(u *model.Unit) error {
	d.mu.Lock()
	defer d.unlock()
	if d.disposed {
		return ErrDisposed
	}
	if u == nil {
		return ErrUnitNotAttached
	}
	a := u.Assignment()
	if a == nil || a.Duty == nil {
		return ErrUnitNotAttached
	}
	d.laterUnit(u.Release())
	return nil
}

// CallSnapshot is a read-only view of a queued call.
type CallSnapshot struct {
	ID       int64         `json:"id"`
	Priority string        `json:"priority"`
	Status   string        `json:"status"`
	Zone     string        `json:"zone"`
	Scenario string        `json:"scenario"`
	Units    []string      `json:"units"`
	Required int           `json:"required"`
	Age      time.Duration `json:"age"`
}

// Snapshot returns the queue state ordered like the scheduling tick sees it.
func (d *Dispatcher) Snapshot() []CallSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := d.pending()
	for _, c := range d.queue {
		if !c.NeedsUnits() {
			calls = append(calls, c)
		}
	}
	res := make([]CallSnapshot, 0, len(calls))
	for _, c := range calls {
		units := c.Units()
		ids := make([]string, len(units))
		for i, u := range units {
			ids[i] = u.ID
		}
		res = append(res, CallSnapshot{
			ID:       c.ID,
			Priority: c.Priority.String(),
			Status:   c.Status().String(),
			Zone:     c.ZoneID(),
			Scenario: c.Scenario,
			Units:    ids,
			Required: c.Required(),
			Age:      d.clock.GameSince(c.CreatedAt),
		})
	}
	return res
}

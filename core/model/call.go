package model

import (
	"slices"
	"sync"
	"time"
)

// CallStatus is the lifecycle state of a call.
type CallStatus int

const (
	CallCreated CallStatus = iota
	CallDispatched
	CallOnScene
	CallCompleted
	CallExpired
	// CallCancelled marks a call removed from the queue by the host.
	CallCancelled
)

func (s CallStatus) String() string {
	switch s {
	case CallCreated:
		return "created"
	case CallDispatched:
		return "dispatched"
	case CallOnScene:
		return "on_scene"
	case CallCompleted:
		return "completed"
	case CallExpired:
		return "expired"
	case CallCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the call has left the active set.
func (s CallStatus) Terminal() bool { return s >= CallCompleted }

// Call is a single simulated incident. Identity fields are immutable once the
// call is queued; mutable state is guarded by an internal lock.
type Call struct {
	ID            int64
	Priority      CallPriority
	Location      Location
	Zone          *Zone
	Scenario      string
	Category      string
	CreatedAt     time.Time
	RequiredUnits int

	mu       sync.RWMutex
	status   CallStatus
	units    []*Unit
	declined map[string]struct{}
	cleared  int
	owner    string
	ended    bool
	hooks    []func(*Call)
	notify   sync.Once
}

// NewCall builds a call for scenario sc at loc inside zone.
func NewCall(id int64, sc Scenario, zone *Zone, loc Location, at time.Time) *Call {
	return &Call{
		ID:            id,
		Priority:      sc.Priority,
		Location:      loc,
		Zone:          zone,
		Scenario:      sc.ID,
		Category:      sc.Category,
		CreatedAt:     at,
		RequiredUnits: sc.Units(),
	}
}

// Status returns the lifecycle state.
func (c *Call) Status() CallStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatus updates the lifecycle state.
func (c *Call) SetStatus(s CallStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Required returns the number of units the call needs, at least one. Units
// that cleared the call early lower the requirement.
func (c *Call) Required() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.RequiredUnits - c.cleared
	if n <= 0 {
		return 1
	}
	return n
}

// Units returns the attached units in attachment order.
func (c *Call) Units() []*Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Unit(nil), c.units...)
}

// UnitCount returns the number of attached units.
func (c *Call) UnitCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}

// Remaining returns how many more units the call needs.
func (c *Call) Remaining() int {
	n := c.Required() - c.UnitCount()
	if n < 0 {
		return 0
	}
	return n
}

// NeedsUnits reports whether fewer units than required are attached.
func (c *Call) NeedsUnits() bool { return c.Remaining() > 0 }

// HasUnit reports whether u is attached.
func (c *Call) HasUnit(u *Unit) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.units, u)
}

// Primary returns the first attached unit or nil.
func (c *Call) Primary() *Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.units) == 0 {
		return nil
	}
	return c.units[0]
}

// Attach adds u to the call. It returns false when u is already attached.
func (c *Call) Attach(u *Unit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.units, u) {
		return false
	}
	c.units = append(c.units, u)
	return true
}

// Detach removes u from the call. It returns false when u was not attached.
func (c *Call) Detach(u *Unit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.units, u)
	if i < 0 {
		return false
	}
	c.units = slices.Delete(c.units, i, i+1)
	return true
}

// Clear detaches u because it finished its part of the work. Unlike Detach
// the slot is not reopened.
func (c *Call) Clear(u *Unit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.units, u)
	if i < 0 {
		return false
	}
	c.units = slices.Delete(c.units, i, i+1)
	c.cleared++
	return true
}

// Decline records that the unit refused the call.
func (c *Call) Decline(unitID string) {
	c.mu.Lock()
	if c.declined == nil {
		c.declined = make(map[string]struct{})
	}
	c.declined[unitID] = struct{}{}
	c.mu.Unlock()
}

// HasDeclined reports whether the unit refused the call.
func (c *Call) HasDeclined(unitID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.declined[unitID]
	return ok
}

// Owner returns the id of the dispatcher queue holding the call.
func (c *Call) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Claim marks the call as queued by owner. It fails when another queue holds it.
func (c *Call) Claim(owner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != "" && c.owner != owner {
		return false
	}
	c.owner = owner
	return true
}

// Disown clears the owner if it matches.
func (c *Call) Disown(owner string) {
	c.mu.Lock()
	if c.owner == owner {
		c.owner = ""
	}
	c.mu.Unlock()
}

// OnEnded registers a hook fired once when the call leaves the active set.
func (c *Call) OnEnded(fn func(*Call)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// ClearEndedHooks unregisters every lifecycle hook.
func (c *Call) ClearEndedHooks() {
	c.mu.Lock()
	c.hooks = nil
	c.mu.Unlock()
}

// End moves the call into the terminal status s. Only the first call succeeds.
func (c *Call) End(s CallStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return false
	}
	c.ended = true
	c.status = s
	return true
}

// Ended reports whether End succeeded.
func (c *Call) Ended() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ended
}

// NotifyEnded fires the registered hooks. Hooks run at most once and only
// after End.
func (c *Call) NotifyEnded() {
	if !c.Ended() {
		return
	}
	c.notify.Do(func() {
		c.mu.RLock()
		hooks := slices.Clone(c.hooks)
		c.mu.RUnlock()
		for _, fn := range hooks {
			fn(c)
		}
	})
}

// AnyOnScene reports whether one of the attached units has arrived.
func (c *Call) AnyOnScene() bool {
	for _, u := range c.Units() {
		if a := u.Assignment(); a != nil && a.Call == c && a.OnScene {
			return true
		}
	}
	return false
}

// Age returns the real time elapsed since creation.
func (c *Call) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// ZoneID returns the id of the owning zone or an empty string.
func (c *Call) ZoneID() string {
	if c.Zone == nil {
		return ""
	}
	return c.Zone.ID
}

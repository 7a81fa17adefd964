package model

import (
	"fmt"
	"strings"
	"sync"
)

// UnitKind identifies the specialisation of a response unit.
type UnitKind int

const (
	KindPatrol UnitKind = iota
	KindTraffic
)

// UnitKinds lists every unit specialisation.
var UnitKinds = []UnitKind{KindPatrol, KindTraffic}

func (k UnitKind) String() string {
	switch k {
	case KindPatrol:
		return "patrol"
	case KindTraffic:
		return "traffic"
	default:
		return "unknown"
	}
}

// Code returns the call-sign letter used for the kind.
func (k UnitKind) Code() string {
	if k == KindTraffic {
		return "M"
	}
	return "A"
}

// ParseUnitKind converts a configuration string into a UnitKind.
func ParseUnitKind(s string) (UnitKind, error) {
	for _, k := range UnitKinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", s)
}

// UnitStatus is the duty state of a unit.
type UnitStatus int

const (
	UnitOffDuty UnitStatus = iota
	UnitAvailable
	UnitDispatched
	UnitOnScene
	// UnitBusy marks a unit working a non-call duty.
	UnitBusy
)

func (s UnitStatus) String() string {
	switch s {
	case UnitOffDuty:
		return "off_duty"
	case UnitAvailable:
		return "available"
	case UnitDispatched:
		return "dispatched"
	case UnitOnScene:
		return "on_scene"
	case UnitBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Duty is a non-call assignment such as a traffic stop or a court appearance.
type Duty struct {
	Name     string
	Priority CallPriority
}

// Assignment is the current work of a unit: either a call or a duty.
type Assignment struct {
	Call    *Call
	Duty    *Duty
	OnScene bool
}

// Priority returns the urgency of the assigned work.
func (a *Assignment) Priority() CallPriority {
	switch {
	case a.Call != nil:
		return a.Call.Priority
	case a.Duty != nil:
		return a.Duty.Priority
	default:
		return PriorityRoutine
	}
}

// StatusChange records a unit status transition.
type StatusChange struct {
	Unit *Unit
	Old  UnitStatus
	New  UnitStatus
}

// Changed reports whether the transition actually changed the status.
func (c StatusChange) Changed() bool { return c.Unit != nil && c.Old != c.New }

// Unit is a response unit. All state is guarded by an internal lock so units
// can be read by the dispatcher while the execution layer reports progress.
type Unit struct {
	ID       string
	Kind     UnitKind
	IsAIUnit bool
	Shift    TimePeriod
	AgencyID string

	mu         sync.RWMutex
	status     UnitStatus
	assignment *Assignment
	location   Location
	relieved   bool
}

// NewUnit returns an off-duty unit.
func NewUnit(id string, kind UnitKind, shift TimePeriod, ai bool) *Unit {
	return &Unit{ID: id, Kind: kind, Shift: shift, IsAIUnit: ai}
}

// Status returns the current status.
func (u *Unit) Status() UnitStatus {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.status
}

// Assignment returns a copy of the current assignment or nil.
func (u *Unit) Assignment() *Assignment {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.assignment == nil {
		return nil
	}
	a := *u.assignment
	return &a
}

// Location returns the last known position.
func (u *Unit) Location() Location {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.location
}

// SetLocation updates the last known position.
func (u *Unit) SetLocation(l Location) {
	u.mu.Lock()
	u.location = l
	u.mu.Unlock()
}

// OnDuty reports whether the unit is part of the active roster.
func (u *Unit) OnDuty() bool { return u.Status() != UnitOffDuty }

// IsIdle reports whether the unit is on duty without any assignment.
func (u *Unit) IsIdle() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.status == UnitAvailable && u.assignment == nil
}

// Relieved reports whether the unit will go off duty once released.
func (u *Unit) Relieved() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.relieved
}

// GoOnDuty positions the unit at a staging location and makes it available.
func (u *Unit) GoOnDuty(at Location) StatusChange {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.status
	u.relieved = false
	u.location = at
	if u.status == UnitOffDuty {
		u.status = UnitAvailable
	}
	return StatusChange{Unit: u, Old: old, New: u.status}
}

// Relieve ends the unit's shift. A unit engaged on a call keeps working it
// and goes off duty when released.
func (u *Unit) Relieve() StatusChange {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.status
	if u.assignment != nil && u.assignment.Call != nil {
		u.relieved = true
		return StatusChange{Unit: u, Old: old, New: old}
	}
	u.assignment = nil
	u.relieved = false
	u.status = UnitOffDuty
	return StatusChange{Unit: u, Old: old, New: u.status}
}

// Assign replaces the current assignment.
func (u *Unit) Assign(a Assignment) StatusChange {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.status
	u.assignment = &a
	switch {
	case a.Call != nil && a.OnScene:
		u.status = UnitOnScene
	case a.Call != nil:
		u.status = UnitDispatched
	default:
		u.status = UnitBusy
	}
	return StatusChange{Unit: u, Old: old, New: u.status}
}

// MarkOnScene records arrival at the assigned call. It returns false when the
// unit has no call assignment.
func (u *Unit) MarkOnScene() (StatusChange, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.assignment == nil || u.assignment.Call == nil {
		return StatusChange{}, false
	}
	old := u.status
	u.assignment.OnScene = true
	u.status = UnitOnScene
	return StatusChange{Unit: u, Old: old, New: u.status}, true
}

// Release clears the assignment. A relieved unit goes off duty.
func (u *Unit) Release() StatusChange {
	u.mu.Lock()
	defer u.mu.Unlock()
	old := u.status
	u.assignment = nil
	switch {
	case u.relieved:
		u.relieved = false
		u.status = UnitOffDuty
	case u.status != UnitOffDuty:
		u.status = UnitAvailable
	}
	return StatusChange{Unit: u, Old: old, New: u.status}
}

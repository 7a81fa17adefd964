package events

import (
	"time"

	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/internal/eventbus"
)

// Hub fans call, unit and shift events out to synchronous listeners and to an
// asynchronous bus.
type Hub struct {
	calls  *eventbus.Listeners[CallEvent]
	units  *eventbus.Listeners[UnitStatusEvent]
	shifts *eventbus.Listeners[ShiftEvent]
	bus    *eventbus.Bus
	log    logger.Logger
	now    func() time.Time
}

// NewHub creates a Hub. A nil logger discards listener panics.
func NewHub(log logger.Logger) *Hub {
	log = logger.OrNop(log)
	h := &Hub{bus: eventbus.New(), log: log, now: time.Now}
	onPanic := func(r any) { log.Errorf("event listener panic: %v", r) }
	h.calls = eventbus.NewListeners[CallEvent](onPanic)
	h.units = eventbus.NewListeners[UnitStatusEvent](onPanic)
	h.shifts = eventbus.NewListeners[ShiftEvent](onPanic)
	return h
}

// Bus returns the asynchronous stream carrying every event.
func (h *Hub) Bus() eventbus.EventBus { return h.bus }

// Dropped returns the number of asynchronous deliveries lost because a
// subscriber fell behind.
func (h *Hub) Dropped() uint64 { return h.bus.Dropped() }

// Close closes the asynchronous stream.
func (h *Hub) Close() { h.bus.Close() }

// OnCall registers a listener for every call event.
func (h *Hub) OnCall(fn func(CallEvent)) (remove func()) { return h.calls.Add(fn) }

// OnUnitStatus registers a listener for unit status changes.
func (h *Hub) OnUnitStatus(fn func(UnitStatusEvent)) (remove func()) { return h.units.Add(fn) }

// OnShift registers a listener for roster rotations.
func (h *Hub) OnShift(fn func(ShiftEvent)) (remove func()) { return h.shifts.Add(fn) }

func (h *Hub) onCallType(t CallEventType, fn func(*model.Call)) func() {
	return h.OnCall(func(e CallEvent) {
		if e.Type == t {
			fn(e.Call)
		}
	})
}

// OnCallAdded registers fn for calls entering a dispatcher queue.
func (h *Hub) OnCallAdded(fn func(*model.Call)) func() { return h.onCallType(CallAdded, fn) }

// OnCallDispatched registers fn for calls receiving their first unit.
func (h *Hub) OnCallDispatched(fn func(*model.Call)) func() {
	return h.onCallType(CallDispatched, fn)
}

// OnCallCompleted registers fn for calls closed by their primary unit.
func (h *Hub) OnCallCompleted(fn func(*model.Call)) func() {
	return h.onCallType(CallCompleted, fn)
}

// OnCallExpired registers fn for routine calls dropped by the expiration sweep.
func (h *Hub) OnCallExpired(fn func(*model.Call)) func() { return h.onCallType(CallExpired, fn) }

// OnCallRaised registers fn for escalation signals.
func (h *Hub) OnCallRaised(fn func(call *model.Call, reason string)) func() {
	return h.OnCall(func(e CallEvent) {
		if e.Type == CallRaised {
			fn(e.Call, e.Reason)
		}
	})
}

// OnUnitStatusChanged registers fn for unit status transitions.
func (h *Hub) OnUnitStatusChanged(fn func(unit *model.Unit, old, new model.UnitStatus)) func() {
	return h.OnUnitStatus(func(e UnitStatusEvent) { fn(e.Unit, e.Old, e.New) })
}

// EmitCall delivers a call event. A zero At is stamped with the current time.
func (h *Hub) EmitCall(e CallEvent) {
	if e.At.IsZero() {
		e.At = h.now()
	}
	h.calls.Emit(e)
	h.bus.Publish(e)
}

// EmitUnitStatus delivers a unit status change. Unchanged statuses are ignored.
func (h *Hub) EmitUnitStatus(agencyID string, ch model.StatusChange) {
	if !ch.Changed() {
		return
	}
	e := UnitStatusEvent{Unit: ch.Unit, Old: ch.Old, New: ch.New, AgencyID: agencyID, At: h.now()}
	h.units.Emit(e)
	h.bus.Publish(e)
}

// EmitShift delivers a roster rotation event.
func (h *Hub) EmitShift(e ShiftEvent) {
	h.shifts.Emit(e)
	h.bus.Publish(e)
}

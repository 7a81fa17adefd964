package events

import (
	"time"

	"github.com/kilianp07/calloutsim/core/model"
)

// CallEventType names a call lifecycle transition.
type CallEventType string

const (
	CallAdded      CallEventType = "added"
	CallDispatched CallEventType = "dispatched"
	CallOnScene    CallEventType = "on_scene"
	CallCompleted  CallEventType = "completed"
	CallExpired    CallEventType = "expired"
	CallCancelled  CallEventType = "cancelled"
	CallRaised     CallEventType = "raised"
)

// Ended reports whether the event removes the call from the active set.
func (t CallEventType) Ended() bool {
	return t == CallCompleted || t == CallExpired || t == CallCancelled
}

// Raise reasons.
const (
	ReasonInsufficientUnits = "insufficient_units"
	ReasonNoUnits           = "no_units"
	ReasonExpeditedStale    = "expedited_unassigned"
)

// CallEvent is published for each call lifecycle transition.
type CallEvent struct {
	Type     CallEventType
	Call     *model.Call
	AgencyID string
	// Reason is set on raise events.
	Reason string
	At     time.Time
}

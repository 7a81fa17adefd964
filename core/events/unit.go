package events

import (
	"time"

	"github.com/kilianp07/calloutsim/core/model"
)

// UnitStatusEvent is published when a unit changes status.
type UnitStatusEvent struct {
	Unit     *model.Unit
	Old      model.UnitStatus
	New      model.UnitStatus
	AgencyID string
	At       time.Time
}

// ShiftEvent is published after an agency rotated its roster.
type ShiftEvent struct {
	AgencyID  string
	Old       model.TimePeriod
	New       model.TimePeriod
	Activated int
	Relieved  int
	// Shortfall counts units that could not be brought on duty.
	Shortfall int
}

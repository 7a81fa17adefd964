package dispatch

import (
	"time"
)

// Config defines dispatch-related settings. Durations are game time.
type Config struct {
	// RoutineExpiryHours is the age after which routine calls nobody reached
	// are dropped.
	RoutineExpiryHours float64 `json:"routine_expiry_hours"`
	// ExpeditedRaiseMinutes is the age after which an unassigned expedited
	// call is raised.
	ExpeditedRaiseMinutes int `json:"expedited_raise_minutes"`
	// TurnoverWindowMinutes suppresses routine assignment right before a
	// shift change. A negative value disables the suppression.
	TurnoverWindowMinutes int `json:"turnover_window_minutes"`
	// Preemption overrides entries of the default preemption table.
	Preemption []PreemptionRule `json:"preemption"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.RoutineExpiryHours <= 0 {
		c.RoutineExpiryHours = 8
	}
	if c.ExpeditedRaiseMinutes <= 0 {
		c.ExpeditedRaiseMinutes = 30
	}
	if c.TurnoverWindowMinutes == 0 {
		c.TurnoverWindowMinutes = 30
	}
}

// Validate checks the preemption overrides.
func (c Config) Validate() error {
	_, err := NewPolicy(c.Preemption)
	return err
}

// RoutineExpiry returns the routine call expiration age.
func (c Config) RoutineExpiry() time.Duration {
	return time.Duration(c.RoutineExpiryHours * float64(time.Hour))
}

// ExpeditedRaiseAfter returns the expedited raise threshold.
func (c Config) ExpeditedRaiseAfter() time.Duration {
	return time.Duration(c.ExpeditedRaiseMinutes) * time.Minute
}

// TurnoverWindow returns the shift turnover window.
func (c Config) TurnoverWindow() time.Duration {
	if c.TurnoverWindowMinutes < 0 {
		return 0
	}
	return time.Duration(c.TurnoverWindowMinutes) * time.Minute
}

package config

import (
	"errors"
	"time"
)

// SimulationConfig controls the game clock and the scheduler driver.
type SimulationConfig struct {
	// RealMSPerGameHour is the wall time of one game hour.
	RealMSPerGameHour int `json:"real_ms_per_game_hour"`
	// StartHour is the game hour of day at startup.
	StartHour int `json:"start_hour"`
	TickMS    int `json:"tick_ms"`
	// Seed derives every random source. Zero picks a random seed.
	Seed      uint64 `json:"seed"`
	MutualAid bool   `json:"mutual_aid"`
}

// SetDefaults fills unset fields.
func (c *SimulationConfig) SetDefaults() {
	if c.RealMSPerGameHour <= 0 {
		c.RealMSPerGameHour = 60000
	}
	if c.TickMS <= 0 {
		c.TickMS = 250
	}
}

// Validate checks ranges.
func (c SimulationConfig) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return errors.New("start_hour must be within [0,23]")
	}
	if c.RealMSPerGameHour <= 0 {
		return errors.New("real_ms_per_game_hour must be positive")
	}
	if c.TickMS <= 0 {
		return errors.New("tick_ms must be positive")
	}
	return nil
}

// RealPerGameHour returns the configured game clock scale.
func (c SimulationConfig) RealPerGameHour() time.Duration {
	return time.Duration(c.RealMSPerGameHour) * time.Millisecond
}

// Tick returns the scheduler tick interval.
func (c SimulationConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

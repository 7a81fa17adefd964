package generator

import (
	"fmt"
	"time"
)

// Config controls call generation.
type Config struct {
	// MaxAttempts bounds the zone/scenario/location retries of one cycle.
	MaxAttempts int `json:"max_attempts"`
	// CrimeWeights maps crime level names to their roll weight.
	CrimeWeights map[string]float64 `json:"crime_weights"`
	// IdleRecheckMS is the minimum sleep while no calls are produced.
	IdleRecheckMS int `json:"idle_recheck_ms"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if len(c.CrimeWeights) == 0 {
		c.CrimeWeights = make(map[string]float64, len(DefaultCrimeWeights))
		for k, v := range DefaultCrimeWeights {
			c.CrimeWeights[k] = v
		}
	}
	if c.IdleRecheckMS <= 0 {
		c.IdleRecheckMS = 100
	}
}

// Validate checks the crime weights.
func (c Config) Validate() error {
	var sum float64
	for name, w := range c.CrimeWeights {
		if _, err := ParseCrimeLevel(name); err != nil {
			return err
		}
		if w < 0 {
			return fmt.Errorf("generator: negative weight for %s", name)
		}
		sum += w
	}
	if len(c.CrimeWeights) > 0 && sum == 0 {
		return fmt.Errorf("generator: crime weights sum to zero")
	}
	return nil
}

// IdleRecheck returns IdleRecheckMS as a duration.
func (c Config) IdleRecheck() time.Duration {
	return time.Duration(c.IdleRecheckMS) * time.Millisecond
}

// weights returns the roll weights indexed by CrimeLevel.
func (c Config) weights() []float64 {
	w := make([]float64, len(CrimeLevels))
	for name, v := range c.CrimeWeights {
		if l, err := ParseCrimeLevel(name); err == nil {
			w[l] = v
		}
	}
	return w
}

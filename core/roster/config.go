package roster

import (
	"fmt"
	"strings"
)

// StaffLevel scales the optimum roster of an agency.
type StaffLevel int

const (
	StaffNormal StaffLevel = iota
	StaffMinimal
	StaffAugmented
)

func (s StaffLevel) String() string {
	switch s {
	case StaffMinimal:
		return "minimal"
	case StaffAugmented:
		return "augmented"
	default:
		return "normal"
	}
}

// Multiplier returns the factor applied to the optimum unit count.
func (s StaffLevel) Multiplier() float64 {
	switch s {
	case StaffMinimal:
		return 0.75
	case StaffAugmented:
		return 1.25
	default:
		return 1
	}
}

// ParseStaffLevel converts a level name. An empty string is StaffNormal.
func ParseStaffLevel(s string) (StaffLevel, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return StaffNormal, nil
	case "minimal":
		return StaffMinimal, nil
	case "augmented":
		return StaffAugmented, nil
	default:
		return 0, fmt.Errorf("unknown staff level %q", s)
	}
}

// Config controls roster sizing.
type Config struct {
	// CallsPerUnitPerShift is the workload one unit absorbs during a period.
	CallsPerUnitPerShift float64 `json:"calls_per_unit_per_shift"`
	// TrafficUnits enables the traffic sub-roster.
	TrafficUnits bool `json:"traffic_units"`
	// StaffLevel is the default level of agencies that do not set one.
	StaffLevel string `json:"staff_level"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.CallsPerUnitPerShift <= 0 {
		c.CallsPerUnitPerShift = 4
	}
}

// Validate checks the staff level name.
func (c Config) Validate() error {
	_, err := ParseStaffLevel(c.StaffLevel)
	return err
}

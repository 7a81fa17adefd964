package model

import (
	"errors"
	"fmt"
	"slices"
)

// CategoryTraffic marks scenarios served by traffic units.
const CategoryTraffic = "traffic"

// Scenario describes a kind of incident a zone can produce.
type Scenario struct {
	ID       string
	Category string
	Priority CallPriority
	// Probability is the relative weight of the scenario inside its zone pool.
	Probability float64
	// Periods restricts the scenario to some time periods. Empty means always.
	Periods          []TimePeriod
	LocationCategory string
	RequiredUnits    int
}

// Validate checks the scenario definition.
func (s Scenario) Validate() error {
	if s.ID == "" {
		return errors.New("scenario id is required")
	}
	if !s.Priority.Valid() {
		return fmt.Errorf("scenario %s: invalid priority %d", s.ID, s.Priority)
	}
	if s.Probability < 0 {
		return fmt.Errorf("scenario %s: negative probability", s.ID)
	}
	if s.RequiredUnits < 0 {
		return fmt.Errorf("scenario %s: negative required units", s.ID)
	}
	return nil
}

// ValidFor reports whether the scenario may be generated during p.
func (s Scenario) ValidFor(p TimePeriod) bool {
	return len(s.Periods) == 0 || slices.Contains(s.Periods, p)
}

// IsTraffic reports whether the scenario belongs to the traffic subset.
func (s Scenario) IsTraffic() bool { return s.Category == CategoryTraffic }

// Units returns the number of units the scenario requires, at least one.
func (s Scenario) Units() int {
	if s.RequiredUnits <= 0 {
		return 1
	}
	return s.RequiredUnits
}

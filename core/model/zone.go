package model

import (
	"errors"
	"fmt"
	"strings"
)

// ZoneSize classifies the geographic extent of a zone. The zero value means
// the size is unspecified and behaves like SizeMedium.
type ZoneSize int

const (
	SizeVerySmall ZoneSize = iota + 1
	SizeSmall
	SizeMedium
	SizeLarge
	SizeVeryLarge
)

var zoneSizeNames = []string{"very_small", "small", "medium", "large", "very_large"}

func (s ZoneSize) String() string {
	if s < SizeVerySmall || s > SizeVeryLarge {
		return "unknown"
	}
	return zoneSizeNames[s-1]
}

// ParseZoneSize converts a configuration string into a ZoneSize. An empty
// string is SizeMedium.
func ParseZoneSize(s string) (ZoneSize, error) {
	if s == "" {
		return SizeMedium, nil
	}
	for i, n := range zoneSizeNames {
		if strings.EqualFold(s, n) {
			return ZoneSize(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown zone size %q", s)
}

// ZonePopulation classifies how densely a zone is populated.
type ZonePopulation int

const (
	PopulationNone ZonePopulation = iota
	PopulationScarce
	PopulationModerate
	PopulationDense
)

var zonePopulationNames = []string{"none", "scarce", "moderate", "dense"}

func (p ZonePopulation) String() string {
	if p < 0 || int(p) >= len(zonePopulationNames) {
		return "unknown"
	}
	return zonePopulationNames[p]
}

// ParseZonePopulation converts a configuration string into a ZonePopulation.
func ParseZonePopulation(s string) (ZonePopulation, error) {
	for i, n := range zonePopulationNames {
		if strings.EqualFold(s, n) {
			return ZonePopulation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown zone population %q", s)
}

// Zone holds the static data of a region patrolled by an agency.
type Zone struct {
	ID         string
	Name       string
	Size       ZoneSize
	Population ZonePopulation
	// Weight biases the incident generator towards this zone. Zero means 1.
	Weight float64
	// AverageCalls is the expected number of calls per time period.
	AverageCalls map[TimePeriod]int
	Staging      []Location
	// Locations holds candidate incident locations keyed by location category.
	Locations map[string][]Location
	Scenarios []Scenario
	// AgencyID is a back-reference to the owning agency.
	AgencyID string
}

// Validate checks the zone is usable by the generator and roster.
func (z *Zone) Validate() error {
	if z == nil {
		return errors.New("zone is nil")
	}
	if z.ID == "" {
		return errors.New("zone id is required")
	}
	for _, p := range TimePeriods {
		if _, ok := z.AverageCalls[p]; !ok {
			return fmt.Errorf("zone %s: missing average calls for %s", z.ID, p)
		}
	}
	if z.Weight < 0 {
		return fmt.Errorf("zone %s: negative weight", z.ID)
	}
	for _, s := range z.Scenarios {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}
	return nil
}

// GetAverageCalls returns the expected number of calls during p.
func (z *Zone) GetAverageCalls(p TimePeriod) int {
	return z.AverageCalls[p]
}

// GetStagingLocations returns a copy of the zone staging points.
func (z *Zone) GetStagingLocations() []Location {
	return append([]Location(nil), z.Staging...)
}

// PickWeight returns the weight used when choosing this zone for a new call.
func (z *Zone) PickWeight() float64 {
	if z.Weight == 0 {
		return 1
	}
	return z.Weight
}

// ScenariosFor returns the scenarios valid during p.
func (z *Zone) ScenariosFor(p TimePeriod) []Scenario {
	var res []Scenario
	for _, s := range z.Scenarios {
		if s.ValidFor(p) {
			res = append(res, s)
		}
	}
	return res
}

// LocationsFor returns the incident locations of the given category.
func (z *Zone) LocationsFor(category string) []Location {
	return z.Locations[category]
}

// TrafficShare returns the fraction of the scenario probability mass during p
// that belongs to traffic scenarios.
func (z *Zone) TrafficShare(p TimePeriod) float64 {
	var total, traffic float64
	for _, s := range z.ScenariosFor(p) {
		total += s.Probability
		if s.IsTraffic() {
			traffic += s.Probability
		}
	}
	if total == 0 {
		return 0
	}
	return traffic / total
}

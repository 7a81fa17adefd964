// Package catalog loads the static zone and agency tables of a simulation
// from YAML or JSON and registers them on a world.Registry.
package catalog

import (
	"errors"
	"fmt"

	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
	"github.com/kilianp07/calloutsim/core/world"
)

// Catalog is the file representation of zones and agencies.
type Catalog struct {
	Zones    []ZoneSpec   `json:"zones" yaml:"zones"`
	Agencies []AgencySpec `json:"agencies" yaml:"agencies"`
}

// LocationSpec is a named point.
type LocationSpec struct {
	Name string  `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// ScenarioSpec describes an incident type.
type ScenarioSpec struct {
	ID               string   `json:"id" yaml:"id"`
	Category         string   `json:"category" yaml:"category"`
	Priority         string   `json:"priority" yaml:"priority"`
	Probability      float64  `json:"probability" yaml:"probability"`
	Periods          []string `json:"periods" yaml:"periods"`
	LocationCategory string   `json:"location_category" yaml:"location_category"`
	RequiredUnits    int      `json:"required_units" yaml:"required_units"`
}

// ZoneSpec describes a zone.
type ZoneSpec struct {
	ID           string                    `json:"id" yaml:"id"`
	Name         string                    `json:"name" yaml:"name"`
	Size         string                    `json:"size" yaml:"size"`
	Population   string                    `json:"population" yaml:"population"`
	Weight       float64                   `json:"weight" yaml:"weight"`
	AverageCalls map[string]int            `json:"average_calls" yaml:"average_calls"`
	Staging      []LocationSpec            `json:"staging" yaml:"staging"`
	Locations    map[string][]LocationSpec `json:"locations" yaml:"locations"`
	Scenarios    []ScenarioSpec            `json:"scenarios" yaml:"scenarios"`
}

// UnitSpec describes an extra unit outside the shift rotation.
type UnitSpec struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`
	// External marks a unit driven from outside the simulation.
	External bool `json:"external" yaml:"external"`
}

// AgencySpec describes an agency.
type AgencySpec struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Callsign   int        `json:"callsign" yaml:"callsign"`
	StaffLevel string     `json:"staff_level" yaml:"staff_level"`
	Zones      []string   `json:"zones" yaml:"zones"`
	Units      []UnitSpec `json:"units" yaml:"units"`
}

func location(l LocationSpec) model.Location {
	return model.Location{Name: l.Name, X: l.X, Y: l.Y}
}

func locations(ls []LocationSpec) []model.Location {
	res := make([]model.Location, len(ls))
	for i, l := range ls {
		res[i] = location(l)
	}
	return res
}

// Scenario converts the catalog entry into a model scenario.
func (s ScenarioSpec) Scenario() (model.Scenario, error) {
	p, err := model.ParsePriority(s.Priority)
	if err != nil {
		return model.Scenario{}, fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	sc := model.Scenario{
		ID:               s.ID,
		Category:         s.Category,
		Priority:         p,
		Probability:      s.Probability,
		LocationCategory: s.LocationCategory,
		RequiredUnits:    s.RequiredUnits,
	}
	for _, name := range s.Periods {
		tp, err := model.ParseTimePeriod(name)
		if err != nil {
			return model.Scenario{}, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		sc.Periods = append(sc.Periods, tp)
	}
	return sc, sc.Validate()
}

// Zone converts the catalog entry into a validated model zone.
func (z ZoneSpec) Zone() (*model.Zone, error) {
	size, err := model.ParseZoneSize(z.Size)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", z.ID, err)
	}
	pop := model.PopulationModerate
	if z.Population != "" {
		if pop, err = model.ParseZonePopulation(z.Population); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
	}
	zone := &model.Zone{
		ID:           z.ID,
		Name:         z.Name,
		Size:         size,
		Population:   pop,
		Weight:       z.Weight,
		AverageCalls: make(map[model.TimePeriod]int, len(z.AverageCalls)),
		Staging:      locations(z.Staging),
		Locations:    make(map[string][]model.Location, len(z.Locations)),
	}
	for name, n := range z.AverageCalls {
		p, err := model.ParseTimePeriod(name)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("zone %s: negative average calls for %s", z.ID, name)
		}
		zone.AverageCalls[p] = n
	}
	for cat, ls := range z.Locations {
		zone.Locations[cat] = locations(ls)
	}
	for _, s := range z.Scenarios {
		sc, err := s.Scenario()
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.ID, err)
		}
		zone.Scenarios = append(zone.Scenarios, sc)
	}
	return zone, zone.Validate()
}

// Validate builds every zone and checks agency references without
// registering anything.
func (c *Catalog) Validate() error {
	var errs []error
	ids := map[string]bool{}
	for _, z := range c.Zones {
		if _, err := z.Zone(); err != nil {
			errs = append(errs, err)
		}
		if ids[z.ID] {
			errs = append(errs, fmt.Errorf("zone %s defined twice", z.ID))
		}
		ids[z.ID] = true
	}
	served := map[string]string{}
	for _, a := range c.Agencies {
		if a.ID == "" {
			errs = append(errs, errors.New("agency id is required"))
		}
		if _, err := roster.ParseStaffLevel(a.StaffLevel); err != nil {
			errs = append(errs, fmt.Errorf("agency %s: %w", a.ID, err))
		}
		if len(a.Zones) == 0 {
			errs = append(errs, fmt.Errorf("agency %s: no zones", a.ID))
		}
		for _, z := range a.Zones {
			if !ids[z] {
				errs = append(errs, fmt.Errorf("agency %s: unknown zone %s", a.ID, z))
			}
			if other, ok := served[z]; ok {
				errs = append(errs, fmt.Errorf("agency %s: zone %s already served by %s", a.ID, z, other))
			}
			served[z] = a.ID
		}
		for _, u := range a.Units {
			if _, err := model.ParseUnitKind(u.Kind); err != nil {
				errs = append(errs, fmt.Errorf("agency %s unit %s: %w", a.ID, u.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply registers every zone and agency on reg.
func (c *Catalog) Apply(reg *world.Registry) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, zs := range c.Zones {
		z, err := zs.Zone()
		if err != nil {
			return err
		}
		if err := reg.AddZone(z); err != nil {
			return err
		}
	}
	for _, as := range c.Agencies {
		level, _ := roster.ParseStaffLevel(as.StaffLevel)
		ag, err := reg.AddAgency(world.AgencySpec{
			ID:         as.ID,
			Name:       as.Name,
			Callsign:   as.Callsign,
			ZoneIDs:    as.Zones,
			StaffLevel: level,
		})
		if err != nil {
			return err
		}
		for _, us := range as.Units {
			kind, _ := model.ParseUnitKind(us.Kind)
			u := model.NewUnit(us.ID, kind, reg.Clock().Period(), !us.External)
			if err := ag.AddUnit(u); err != nil {
				return err
			}
		}
	}
	return nil
}

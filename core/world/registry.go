// Package world holds the explicit registry of zones and agencies shared by
// the generators, dispatchers and rosters of one simulation.
package world

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/generator"
	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
)

// Clock is the game clock shared by every agency.
type Clock interface {
	Now() time.Time
	Period() model.TimePeriod
	RealPerGameHour() time.Duration
	UntilNextPeriod() time.Duration
	PeriodLength() time.Duration
	GameSince(time.Time) time.Duration
	NearPeriodChange(window time.Duration) bool
}

// Config groups the settings handed to every agency component.
type Config struct {
	Dispatch  dispatch.Config
	Generator generator.Config
	Roster    roster.Config
}

// Options configures a Registry.
type Options struct {
	Config Config
	Clock  Clock
	Hub    *events.Hub
	// IDs is the call id source. A randomly seeded one is used when nil.
	IDs *model.CallIDSource
	// Seed derives the random sources of every agency. Zero picks one.
	Seed uint64
	Log  logger.Logger
}

// Registry owns the zones and agencies of a simulation.
type Registry struct {
	cfg   Config
	clock Clock
	hub   *events.Hub
	ids   *model.CallIDSource
	seed  uint64
	log   logger.Logger

	mu       sync.RWMutex
	zones    map[string]*model.Zone
	zoneIDs  []string
	agencies map[string]*Agency
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Clock == nil {
		return nil, errors.New("world: clock is required")
	}
	if opts.Hub == nil {
		opts.Hub = events.NewHub(opts.Log)
	}
	if opts.IDs == nil {
		opts.IDs = model.NewRandomCallIDSource()
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
	}
	return &Registry{
		cfg:      opts.Config,
		clock:    opts.Clock,
		hub:      opts.Hub,
		ids:      opts.IDs,
		seed:     opts.Seed,
		log:      logger.OrNop(opts.Log),
		zones:    make(map[string]*model.Zone),
		agencies: make(map[string]*Agency),
	}, nil
}

// Hub returns the event hub.
func (r *Registry) Hub() *events.Hub { return r.hub }

// Clock returns the game clock.
func (r *Registry) Clock() Clock { return r.clock }

// IDs returns the call id source.
func (r *Registry) IDs() *model.CallIDSource { return r.ids }

// AddZone validates and registers z.
func (r *Registry) AddZone(z *model.Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[z.ID]; ok {
		return fmt.Errorf("%w: zone %s", ErrDuplicate, z.ID)
	}
	r.zones[z.ID] = z
	r.zoneIDs = append(r.zoneIDs, z.ID)
	return nil
}

// Zone returns a registered zone.
func (r *Registry) Zone(id string) (*model.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, id)
	}
	return z, nil
}

// Zones returns every zone in registration order.
func (r *Registry) Zones() []*model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*model.Zone, 0, len(r.zoneIDs))
	for _, id := range r.zoneIDs {
		res = append(res, r.zones[id])
	}
	return res
}

// GetAverageCalls returns the expected call count of a zone during p.
func (r *Registry) GetAverageCalls(zoneID string, p model.TimePeriod) (int, error) {
	z, err := r.Zone(zoneID)
	if err != nil {
		return 0, err
	}
	return z.GetAverageCalls(p), nil
}

// GetStagingLocations returns the staging points of a zone.
func (r *Registry) GetStagingLocations(zoneID string) ([]model.Location, error) {
	z, err := r.Zone(zoneID)
	if err != nil {
		return nil, err
	}
	return z.GetStagingLocations(), nil
}

// AddAgency registers an agency over already registered zones. A zone belongs
// to at most one agency.
func (r *Registry) AddAgency(spec AgencySpec) (*Agency, error) {
	if spec.ID == "" {
		return nil, errors.New("world: agency id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agencies[spec.ID]; ok {
		return nil, fmt.Errorf("%w: agency %s", ErrDuplicate, spec.ID)
	}
	zones := make([]*model.Zone, 0, len(spec.ZoneIDs))
	for _, id := range spec.ZoneIDs {
		z, ok := r.zones[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownZone, id)
		}
		if z.AgencyID != "" && z.AgencyID != spec.ID {
			return nil, fmt.Errorf("world: zone %s already served by %s", id, z.AgencyID)
		}
		zones = append(zones, z)
	}
	for _, z := range zones {
		z.AgencyID = spec.ID
	}
	if spec.Callsign == 0 {
		spec.Callsign = len(r.order) + 1
	}
	a := &Agency{spec: spec, zones: zones, world: r, log: r.log}
	r.agencies[spec.ID] = a
	r.order = append(r.order, spec.ID)
	return a, nil
}

// Agency returns a registered agency.
func (r *Registry) Agency(id string) (*Agency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agencies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgency, id)
	}
	return a, nil
}

// Agencies returns every agency in registration order.
func (r *Registry) Agencies() []*Agency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*Agency, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.agencies[id])
	}
	return res
}

// EnableAll enables every disabled agency.
func (r *Registry) EnableAll(ctx context.Context) error {
	for _, a := range r.Agencies() {
		if a.Enabled() {
			continue
		}
		if err := a.Enable(ctx); err != nil {
			return fmt.Errorf("enable %s: %w", a.ID(), err)
		}
	}
	return nil
}

// DisableAll disables every enabled agency.
func (r *Registry) DisableAll() error {
	var errs []error
	for _, a := range r.Agencies() {
		if !a.Enabled() {
			continue
		}
		if err := a.Disable(); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", a.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// FindUnit looks a unit up across the rosters of enabled agencies.
func (r *Registry) FindUnit(id string) (*model.Unit, *Agency, bool) {
	for _, a := range r.Agencies() {
		ro := a.Roster()
		if ro == nil {
			continue
		}
		if u, ok := ro.Unit(id); ok {
			return u, a, true
		}
	}
	return nil, nil, false
}

// EnableMutualAid lends the closest idle unit of another enabled agency to
// every raised call. It returns a function removing the listener.
func (r *Registry) EnableMutualAid() (remove func()) {
	return r.hub.OnCallRaised(func(c *model.Call, reason string) {
		owner, err := r.Agency(c.Owner())
		if err != nil {
			return
		}
		d := owner.Dispatcher()
		if d == nil {
			return
		}
		for _, u := range r.aidCandidates(c, owner.ID()) {
			if err := d.AttachUnit(c, u); err == nil {
				r.log.Infof("mutual aid: unit %s of %s lent to call %d of %s (%s)",
					u.ID, u.AgencyID, c.ID, owner.ID(), reason)
				return
			}
		}
	})
}

func (r *Registry) aidCandidates(c *model.Call, ownerID string) []*model.Unit {
	var pool []*model.Unit
	for _, a := range r.Agencies() {
		if a.ID() == ownerID {
			continue
		}
		ro := a.Roster()
		if ro == nil {
			continue
		}
		for _, u := range ro.OnDuty() {
			if u.IsAIUnit && u.IsIdle() {
				pool = append(pool, u)
			}
		}
	}
	slices.SortFunc(pool, func(x, y *model.Unit) int {
		return cmp.Or(
			cmp.Compare(x.Location().DistanceTo(c.Location), y.Location().DistanceTo(c.Location)),
			cmp.Compare(x.ID, y.ID),
		)
	})
	return pool
}

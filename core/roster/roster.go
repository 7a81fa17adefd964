// Package roster sizes the per-period unit roster of an agency from zone
// intensity and rotates units on and off duty at time period changes.
package roster

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
)

// Rotation summarises one shift change.
type Rotation struct {
	Old       model.TimePeriod
	New       model.TimePeriod
	Activated int
	Relieved  int
	Shortfall int
	Changes   []model.StatusChange
}

// Roster holds the units of one agency partitioned by shift.
type Roster struct {
	agencyID string
	callsign int
	zones    []*model.Zone
	level    StaffLevel
	cfg      Config
	log      logger.Logger

	mu       sync.RWMutex
	rng      *rand.Rand
	byShift  map[model.TimePeriod][]*model.Unit
	extra    []*model.Unit
	ids      map[string]*model.Unit
	current  model.TimePeriod
	disposed bool
}

// New builds the roster of agencyID. Unit call signs start with callsign.
func New(agencyID string, callsign int, zones []*model.Zone, level StaffLevel, cfg Config, rng *rand.Rand, log logger.Logger) (*Roster, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoZones, agencyID)
	}
	cfg.SetDefaults()
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r := &Roster{
		agencyID: agencyID,
		callsign: callsign,
		zones:    zones,
		level:    level,
		cfg:      cfg,
		log:      logger.OrNop(log),
		rng:      rng,
		byShift:  make(map[model.TimePeriod][]*model.Unit),
		ids:      make(map[string]*model.Unit),
	}
	for _, p := range model.TimePeriods {
		for _, kind := range model.UnitKinds {
			n := OptimumUnits(zones, p, kind, level, cfg)
			for i := 0; i < n; i++ {
				u := model.NewUnit(r.callSign(kind, p, i+1), kind, p, true)
				u.AgencyID = agencyID
				r.byShift[p] = append(r.byShift[p], u)
				r.ids[u.ID] = u
			}
		}
	}
	return r, nil
}

func (r *Roster) callSign(kind model.UnitKind, p model.TimePeriod, n int) string {
	return fmt.Sprintf("%d%s-%s%02d", r.callsign, kind.Code(), strings.ToUpper(p.String()[:1]), n)
}

// AgencyID returns the owning agency id.
func (r *Roster) AgencyID() string { return r.agencyID }

// Level returns the staff level used to size the roster.
func (r *Roster) Level() StaffLevel { return r.level }

// AddUnit rosters an extra unit outside the shift rotation, such as the
// externally driven unit.
func (r *Roster) AddUnit(u *model.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	if _, ok := r.ids[u.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.ID)
	}
	u.AgencyID = r.agencyID
	r.extra = append(r.extra, u)
	r.ids[u.ID] = u
	return nil
}

// Unit returns the unit with the given id.
func (r *Roster) Unit(id string) (*model.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.ids[id]
	return u, ok
}

// Units returns every rostered unit, on duty or not.
func (r *Roster) Units() []*model.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.units()
}

func (r *Roster) units() []*model.Unit {
	var res []*model.Unit
	for _, p := range model.TimePeriods {
		res = append(res, r.byShift[p]...)
	}
	return append(res, r.extra...)
}

// Shift returns the units of period p.
func (r *Roster) Shift(p model.TimePeriod) []*model.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byShift[p])
}

// OnDuty returns the units currently on duty.
func (r *Roster) OnDuty() []*model.Unit {
	var res []*model.Unit
	for _, u := range r.Units() {
		if u.OnDuty() {
			res = append(res, u)
		}
	}
	return res
}

// Current returns the active shift.
func (r *Roster) Current() model.TimePeriod {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Optimum returns the number of kind units rostered for p.
func (r *Roster) Optimum(kind model.UnitKind, p model.TimePeriod) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.byShift[p] {
		if u.Kind == kind {
			n++
		}
	}
	return n
}

// Start brings the units of p on duty. Extra units outside the rotation go on
// duty at the first staging location and stay on duty across rotations.
func (r *Roster) Start(p model.TimePeriod) (Rotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return Rotation{}, ErrDisposed
	}
	rot := Rotation{Old: p, New: p}
	r.activate(&rot)
	var home model.Location
	if staging := r.stagingLocations(); len(staging) > 0 {
		home = staging[0]
	}
	for _, u := range r.extra {
		if !u.OnDuty() {
			rot.Changes = append(rot.Changes, u.GoOnDuty(home))
		}
	}
	r.current = p
	return rot, nil
}

// Rotate hands over from the units of old to the units of next. The new shift
// is activated before the old one is relieved so coverage never drops to
// zero. Units engaged on a call finish it before going off duty.
func (r *Roster) Rotate(old, next model.TimePeriod) (Rotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return Rotation{}, ErrDisposed
	}
	rot := Rotation{Old: old, New: next}
	r.activate(&rot)
	if old != next {
		for _, u := range r.byShift[old] {
			if !u.OnDuty() {
				continue
			}
			ch := u.Relieve()
			if ch.Changed() {
				rot.Relieved++
				rot.Changes = append(rot.Changes, ch)
			}
		}
	}
	r.current = next
	return rot, nil
}

// activate positions the off-duty units of rot.New at distinct random staging
// locations. Units without a free staging location stay off duty.
func (r *Roster) activate(rot *Rotation) {
	var pending []*model.Unit
	for _, u := range r.byShift[rot.New] {
		if !u.OnDuty() {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return
	}
	staging := r.stagingLocations()
	r.rng.Shuffle(len(staging), func(i, j int) { staging[i], staging[j] = staging[j], staging[i] })
	if len(staging) < len(pending) {
		rot.Shortfall = len(pending) - len(staging)
		r.log.Warnw("not enough staging locations", map[string]any{
			"agency":    r.agencyID,
			"period":    rot.New.String(),
			"units":     len(pending),
			"locations": len(staging),
		})
		pending = pending[:len(staging)]
	}
	for i, u := range pending {
		ch := u.GoOnDuty(staging[i])
		rot.Activated++
		rot.Changes = append(rot.Changes, ch)
	}
}

func (r *Roster) stagingLocations() []model.Location {
	var res []model.Location
	for _, z := range r.zones {
		res = append(res, z.GetStagingLocations()...)
	}
	return res
}

// Dispose takes every unit off duty. A disposed roster rejects rotations.
func (r *Roster) Dispose() ([]model.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return nil, ErrDisposed
	}
	r.disposed = true
	var changes []model.StatusChange
	for _, u := range r.units() {
		if !u.OnDuty() {
			continue
		}
		old := u.Status()
		u.Release()
		ch := u.Relieve()
		ch.Old = old
		changes = append(changes, ch)
	}
	return changes, nil
}

// Package generator manufactures simulated calls for one agency at a rate
// driven by the zone catalog and a crime level re-rolled at every time period
// change.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/kilianp07/calloutsim/core/logger"
	"github.com/kilianp07/calloutsim/core/model"
)

// CallSink receives generated calls. The dispatcher implements it.
type CallSink interface {
	AddCall(*model.Call) error
}

// Clock exposes the game time needed to pace generation.
type Clock interface {
	Now() time.Time
	Period() model.TimePeriod
	RealPerGameHour() time.Duration
	UntilNextPeriod() time.Duration
	PeriodLength() time.Duration
}

// Generator produces calls for the zones of one agency.
type Generator struct {
	agencyID string
	zones    []*model.Zone
	sink     CallSink
	ids      *model.CallIDSource
	clock    Clock
	cfg      Config
	log      logger.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	level   CrimeLevel
	weights []float64
}

// New creates a generator. The random source is used for every draw; pass a
// seeded *rand.Rand for reproducible runs.
func New(agencyID string, zones []*model.Zone, sink CallSink, ids *model.CallIDSource, clk Clock, cfg Config, rng *rand.Rand, log logger.Logger) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil || clk == nil || ids == nil {
		return nil, errors.New("generator: sink, clock and id source are required")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g := &Generator{
		agencyID: agencyID,
		zones:    zones,
		sink:     sink,
		ids:      ids,
		clock:    clk,
		cfg:      cfg,
		log:      logger.OrNop(log),
		rng:      rng,
		weights:  cfg.weights(),
		level:    CrimeModerate,
	}
	crimeLevel.WithLabelValues(agencyID).Set(float64(g.level))
	return g, nil
}

// Level returns the current crime level.
func (g *Generator) Level() CrimeLevel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

// SetLevel forces the crime level.
func (g *Generator) SetLevel(l CrimeLevel) {
	g.mu.Lock()
	g.level = l
	g.mu.Unlock()
	crimeLevel.WithLabelValues(g.agencyID).Set(float64(l))
}

// RollCrimeLevel draws a new crime level independent of the previous one.
func (g *Generator) RollCrimeLevel() CrimeLevel {
	g.mu.Lock()
	idx, ok := sampleuv.NewWeighted(g.weights, g.rng).Take()
	if ok {
		g.level = CrimeLevel(idx)
	}
	l := g.level
	g.mu.Unlock()
	crimeLevel.WithLabelValues(g.agencyID).Set(float64(l))
	return l
}

// OnTimePeriodChanged re-rolls the crime level.
func (g *Generator) OnTimePeriodChanged(old, next model.TimePeriod) {
	l := g.RollCrimeLevel()
	g.log.Infof("agency %s period %s -> %s crime level %s", g.agencyID, old, next, l)
}

// MeanDelay converts the aggregate expected call count of period p into the
// mean real time between two calls. It returns false when no call is expected.
func (g *Generator) MeanDelay(p model.TimePeriod) (time.Duration, bool) {
	counts := make([]float64, 0, len(g.zones))
	for _, z := range g.zones {
		counts = append(counts, float64(z.GetAverageCalls(p)))
	}
	total := floats.Sum(counts)
	if total <= 0 {
		return 0, false
	}
	perHour := total / model.PeriodHours
	return time.Duration(float64(g.clock.RealPerGameHour()) / perHour), true
}

// CurrentDelayRange returns the inter-arrival range for the current period and
// crime level. The upper bound never reaches past the end of the following
// period.
func (g *Generator) CurrentDelayRange() (lo, hi time.Duration, ok bool) {
	mean, ok := g.MeanDelay(g.clock.Period())
	if !ok {
		return 0, 0, false
	}
	lo, hi, ok = DelayRange(g.Level(), mean)
	if !ok {
		return 0, 0, false
	}
	limit := g.clock.UntilNextPeriod() + g.clock.PeriodLength()
	if hi > limit {
		hi = limit
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi, true
}

// NextDelay samples the sleep before the next call.
func (g *Generator) NextDelay() (time.Duration, bool) {
	lo, hi, ok := g.CurrentDelayRange()
	if !ok {
		return 0, false
	}
	if lo == hi {
		return lo, true
	}
	g.mu.Lock()
	v := distuv.Uniform{Min: float64(lo), Max: float64(hi), Src: g.rng}.Rand()
	g.mu.Unlock()
	return time.Duration(v), true
}

// Generate builds one call and hands it to the sink. Zone, scenario and
// location failures are retried up to MaxAttempts times before the cycle is
// skipped with ErrCycleSkipped.
func (g *Generator) Generate() (*model.Call, error) {
	period := g.clock.Period()
	var last error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		call, err := g.build(period)
		if err == nil {
			if err := g.sink.AddCall(call); err != nil {
				return nil, err
			}
			callsGenerated.WithLabelValues(g.agencyID, call.Priority.String()).Inc()
			g.log.Debugw("call generated", map[string]any{
				"agency":   g.agencyID,
				"call_id":  call.ID,
				"zone":     call.ZoneID(),
				"scenario": call.Scenario,
				"priority": call.Priority.String(),
			})
			return call, nil
		}
		last = err
	}
	cyclesSkipped.WithLabelValues(g.agencyID).Inc()
	g.log.Warnw("generation cycle skipped", map[string]any{
		"agency":   g.agencyID,
		"period":   period.String(),
		"attempts": g.cfg.MaxAttempts,
		"error":    last.Error(),
	})
	return nil, fmt.Errorf("%w: %w", ErrCycleSkipped, last)
}

func (g *Generator) build(period model.TimePeriod) (call *model.Call, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	zone, err := g.pickZone()
	if err != nil {
		return nil, err
	}
	sc, err := g.pickScenario(zone, period)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", zone.ID, err)
	}
	loc, err := g.pickLocation(zone, sc)
	if err != nil {
		return nil, fmt.Errorf("zone %s scenario %s: %w", zone.ID, sc.ID, err)
	}
	return model.NewCall(g.ids.Next(), sc, zone, loc, g.clock.Now()), nil
}

func (g *Generator) pickZone() (*model.Zone, error) {
	if len(g.zones) == 0 {
		return nil, ErrNoZone
	}
	w := make([]float64, len(g.zones))
	for i, z := range g.zones {
		w[i] = z.PickWeight()
	}
	idx, ok := sampleuv.NewWeighted(w, g.rng).Take()
	if !ok {
		return nil, ErrNoZone
	}
	return g.zones[idx], nil
}

func (g *Generator) pickScenario(z *model.Zone, p model.TimePeriod) (model.Scenario, error) {
	pool := z.ScenariosFor(p)
	if len(pool) == 0 {
		return model.Scenario{}, ErrNoScenario
	}
	w := make([]float64, len(pool))
	for i, s := range pool {
		w[i] = s.Probability
	}
	idx, ok := sampleuv.NewWeighted(w, g.rng).Take()
	if !ok {
		return model.Scenario{}, ErrNoScenario
	}
	return pool[idx], nil
}

func (g *Generator) pickLocation(z *model.Zone, sc model.Scenario) (model.Location, error) {
	var pool []model.Location
	if sc.LocationCategory != "" {
		pool = z.LocationsFor(sc.LocationCategory)
	} else {
		keys := make([]string, 0, len(z.Locations))
		for k := range z.Locations {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			pool = append(pool, z.Locations[k]...)
		}
	}
	if len(pool) == 0 {
		return model.Location{}, ErrNoLocation
	}
	return pool[g.rng.IntN(len(pool))], nil
}

// Run generates calls until ctx is cancelled. Each cycle produces one call then
// sleeps for a random delay. While the crime level produces no calls the loop
// waits for the next period. A failing or panicking cycle is logged and
// skipped.
func (g *Generator) Run(ctx context.Context) error {
	g.log.Infof("generator started for agency %s with %d zones", g.agencyID, len(g.zones))
	defer g.log.Infof("generator stopped for agency %s", g.agencyID)
	for {
		if ctx.Err() != nil {
			return nil
		}
		delay, ok := g.NextDelay()
		if ok {
			g.cycle()
		} else {
			delay = g.clock.UntilNextPeriod()
		}
		if floor := g.cfg.IdleRecheck(); !ok && delay < floor {
			delay = floor
		}
		intervalHist.WithLabelValues(g.agencyID).Observe(delay.Seconds())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (g *Generator) cycle() {
	defer func() {
		if r := recover(); r != nil {
			cyclesSkipped.WithLabelValues(g.agencyID).Inc()
			g.log.Errorf("generation cycle panic for agency %s: %v", g.agencyID, r)
		}
	}()
	if _, err := g.Generate(); err != nil && !errors.Is(err, ErrCycleSkipped) {
		g.log.Errorf("agency %s: add call: %v", g.agencyID, err)
	}
}

package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/config"
	"github.com/kilianp07/calloutsim/core/catalog"
	"github.com/kilianp07/calloutsim/core/clock"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/factory"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
	"github.com/kilianp07/calloutsim/core/world"
	"github.com/kilianp07/calloutsim/infra/history"
)

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func quietZone(id string) *model.Zone {
	z := &model.Zone{ID: id, AverageCalls: map[model.TimePeriod]int{}}
	for _, p := range model.TimePeriods {
		z.AverageCalls[p] = 4
	}
	for i := 0; i < 3; i++ {
		z.Staging = append(z.Staging, model.Location{Name: fmt.Sprintf("%s-%d", id, i), X: float64(i * 100)})
	}
	return z
}

func TestTally(t *testing.T) {
	hub := events.NewHub(nil)
	tally := NewTally()
	detach := tally.Attach(hub)

	c := &model.Call{ID: 1}
	hub.EmitCall(events.CallEvent{Type: events.CallAdded, Call: c, AgencyID: "b"})
	hub.EmitCall(events.CallEvent{Type: events.CallRaised, Call: c, AgencyID: "b", Reason: events.ReasonNoUnits})
	hub.EmitCall(events.CallEvent{Type: events.CallAdded, Call: c, AgencyID: "a"})
	hub.EmitShift(events.ShiftEvent{AgencyID: "a", Shortfall: 2})
	u := model.NewUnit("u", model.KindPatrol, model.PeriodDay, true)
	hub.EmitUnitStatus("a", u.GoOnDuty(model.Location{}))

	assert.Equal(t, []string{"a", "b"}, tally.Agencies())
	assert.Equal(t, 2, tally.Total(events.CallAdded))
	b := tally.Agency("b")
	assert.Equal(t, 1, b.Raised[events.ReasonNoUnits])
	a := tally.Agency("a")
	assert.Equal(t, 1, a.Shifts)
	assert.Equal(t, 2, a.Shortfall)
	assert.Equal(t, 1, tally.UnitTransitions())
	assert.Empty(t, tally.Agency("nobody").Calls)

	detach()
	hub.EmitCall(events.CallEvent{Type: events.CallAdded, Call: c, AgencyID: "a"})
	assert.Equal(t, 2, tally.Total(events.CallAdded))
}

func TestResponderDrivesCallToCompletion(t *testing.T) {
	mt := &manualTime{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	clk, err := clock.New(time.Hour, 9, clock.WithNow(mt.Now))
	require.NoError(t, err)
	reg, err := world.NewRegistry(world.Options{Clock: clk, Seed: 3, IDs: model.NewCallIDSource(0)})
	require.NoError(t, err)
	zone := quietZone("z")
	require.NoError(t, reg.AddZone(zone))
	ag, err := reg.AddAgency(world.AgencySpec{ID: "north", ZoneIDs: []string{"z"}})
	require.NoError(t, err)

	var completed []int64
	reg.Hub().OnCallCompleted(func(c *model.Call) { completed = append(completed, c.ID) })

	// Enable with a cancelled context so the generator loop exits at once.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, reg.EnableAll(ctx))
	t.Cleanup(func() { _ = reg.DisableAll() })

	sc := model.Scenario{ID: "assault", Priority: model.PriorityEmergency}
	call := model.NewCall(50, sc, zone, model.Location{X: 1000}, clk.Now())
	require.NoError(t, ag.Dispatcher().AddCall(call))
	require.NoError(t, ag.Process())
	require.Equal(t, model.CallDispatched, call.Status())
	unit := call.Primary()

	r := NewResponder(reg, DefaultResponderConfig, nil)
	r.Step()
	mt.Advance(time.Minute)
	r.Step()
	assert.Equal(t, model.CallDispatched, call.Status())

	mt.Advance(2 * time.Minute)
	r.Step()
	assert.Equal(t, model.CallOnScene, call.Status())
	assert.Equal(t, call.Location, unit.Location())

	mt.Advance(39 * time.Minute)
	r.Step()
	assert.Equal(t, model.CallOnScene, call.Status())

	mt.Advance(2 * time.Minute)
	r.Step()
	assert.Equal(t, model.CallCompleted, call.Status())
	assert.Equal(t, []int64{50}, completed)
	assert.Equal(t, model.UnitAvailable, unit.Status())
	assert.Empty(t, r.active)
}

func TestServiceRunsDefaultCity(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the simulation for a second")
	}
	cfg := config.Default()
	cfg.Simulation.RealMSPerGameHour = 200
	cfg.Simulation.TickMS = 10
	cfg.Simulation.Seed = 99
	cfg.Simulation.MutualAid = true
	cfg.Logging.Level = "error"
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "sqlite", Conf: map[string]any{"path": dbPath}}}
	require.NoError(t, cfg.Validate())

	cat, err := catalog.Default()
	require.NoError(t, err)
	svc, err := New(cfg, WithCatalog(cat), WithResponder(DefaultResponderConfig))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, svc.Run(ctx))
	stats := svc.Stats()
	require.Len(t, stats, 2)
	assert.False(t, stats[0].Enabled)
	require.NoError(t, svc.Close())

	assert.Positive(t, svc.Tally.Total(events.CallAdded))
	assert.Positive(t, svc.Tally.Total(events.CallDispatched))
	assert.Positive(t, svc.Driver.Steps())
	for _, ag := range svc.Registry.Agencies() {
		assert.False(t, ag.Enabled())
	}

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	counts, err := store.EventCounts("")
	require.NoError(t, err)
	assert.Positive(t, counts[string(events.CallAdded)])
}

func TestRunStopsBackgroundWorkWhenEnableFails(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.PrometheusAddr = ""
	cfg.Metrics.Sinks = nil
	cfg.Logging.Level = "error"
	cat, err := catalog.Default()
	require.NoError(t, err)
	svc, err := New(cfg, WithCatalog(cat))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	// A unit sharing a generated call sign makes the next Enable fail.
	ag := svc.Registry.Agencies()[0]
	stopped, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ag.Enable(stopped))
	first := ag.Roster().Units()[0]
	require.NoError(t, ag.Disable())
	require.NoError(t, ag.AddUnit(model.NewUnit(first.ID, first.Kind, first.Shift, false)))

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, roster.ErrDuplicateUnit)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after enabling failed")
	}
	for _, a := range svc.Registry.Agencies() {
		assert.False(t, a.Enabled())
	}
}

func TestNewRejectsMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.Path = "/nonexistent/city.yaml"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "catalog")
}

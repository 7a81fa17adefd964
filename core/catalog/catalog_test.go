package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/core/clock"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
	"github.com/kilianp07/calloutsim/core/world"
)

const smallYAML = `
zones:
  - id: z1
    size: small
    average_calls: {morning: 4, day: 4, evening: 4, night: 4}
    staging:
      - {name: s1, x: 0, y: 0}
      - {name: s2, x: 10, y: 0}
    locations:
      street:
        - {name: main, x: 5, y: 5}
    scenarios:
      - {id: theft, category: property, priority: routine, probability: 1, location_category: street}
agencies:
  - id: north
    name: North Precinct
    zones: [z1]
    units:
      - {id: player, kind: patrol, external: true}
`

func newRegistry(t *testing.T) *world.Registry {
	t.Helper()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clk, err := clock.New(time.Minute, 9, clock.WithNow(func() time.Time { return start }))
	require.NoError(t, err)
	reg, err := world.NewRegistry(world.Options{Clock: clk, Seed: 7, IDs: model.NewCallIDSource(0)})
	require.NoError(t, err)
	return reg
}

func TestDecodeYAML(t *testing.T) {
	c, err := Decode(strings.NewReader(smallYAML), "yaml")
	require.NoError(t, err)
	require.Len(t, c.Zones, 1)
	require.Len(t, c.Agencies, 1)
	assert.True(t, c.Agencies[0].Units[0].External)
	require.NoError(t, c.Validate())

	z, err := c.Zones[0].Zone()
	require.NoError(t, err)
	assert.Equal(t, model.SizeSmall, z.Size)
	assert.Equal(t, model.PopulationModerate, z.Population)
	assert.Equal(t, 4, z.GetAverageCalls(model.PeriodNight))
	assert.Equal(t, model.PriorityRoutine, z.Scenarios[0].Priority)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("zones: []\nplanets: []\n"), "yaml")
	assert.Error(t, err)
	_, err = Decode(strings.NewReader(`{"zones": [], "planets": []}`), "json")
	assert.Error(t, err)
	_, err = Decode(strings.NewReader(""), "toml")
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "city.json")
	body := `{"zones":[{"id":"z","average_calls":{"morning":1,"day":1,"evening":1,"night":1}}],
"agencies":[{"id":"a","zones":["z"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "z", c.Zones[0].ID)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	c := &Catalog{
		Zones: []ZoneSpec{
			{ID: "z", AverageCalls: map[string]int{"morning": 1}},
			{ID: "y", Size: "huge", AverageCalls: map[string]int{"morning": 1, "day": 1, "evening": 1, "night": 1}},
		},
		Agencies: []AgencySpec{
			{ID: "a", Zones: []string{"z", "nowhere"}, StaffLevel: "skeleton"},
			{ID: "b", Zones: []string{"z"}, Units: []UnitSpec{{ID: "u", Kind: "boat"}}},
			{ID: "c"},
		},
	}
	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"missing average calls",
		"unknown zone size",
		"unknown zone nowhere",
		"unknown staff level",
		"already served by a",
		"unknown unit kind",
		"agency c: no zones",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestScenarioSpecErrors(t *testing.T) {
	_, err := ScenarioSpec{ID: "x", Priority: "whenever"}.Scenario()
	assert.Error(t, err)
	_, err = ScenarioSpec{ID: "x", Priority: "routine", Periods: []string{"noon"}}.Scenario()
	assert.Error(t, err)
	sc, err := ScenarioSpec{ID: "x", Priority: "Emergency", Periods: []string{"night"}}.Scenario()
	require.NoError(t, err)
	assert.Equal(t, model.PriorityEmergency, sc.Priority)
	assert.True(t, sc.ValidFor(model.PeriodNight))
	assert.False(t, sc.ValidFor(model.PeriodDay))
}

func TestApplyRegistersAgencyAndExternalUnit(t *testing.T) {
	c, err := Decode(strings.NewReader(smallYAML), "yaml")
	require.NoError(t, err)
	reg := newRegistry(t)
	require.NoError(t, c.Apply(reg))

	ag, err := reg.Agency("north")
	require.NoError(t, err)
	assert.Equal(t, "North Precinct", ag.Name())
	assert.Equal(t, roster.StaffNormal, ag.StaffLevel())

	require.NoError(t, reg.EnableAll(context.Background()))
	t.Cleanup(func() { _ = reg.DisableAll() })
	u, owner, ok := reg.FindUnit("player")
	require.True(t, ok)
	assert.Equal(t, "north", owner.ID())
	assert.False(t, u.IsAIUnit)
	assert.True(t, u.OnDuty())
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	reg := newRegistry(t)
	require.NoError(t, c.Apply(reg))
	assert.Len(t, reg.Agencies(), 2)
	assert.Len(t, reg.Zones(), 4)

	var shortfall int
	reg.Hub().OnShift(func(e events.ShiftEvent) { shortfall += e.Shortfall })
	require.NoError(t, reg.EnableAll(context.Background()))
	t.Cleanup(func() { _ = reg.DisableAll() })
	assert.Zero(t, shortfall)

	metro, err := reg.Agency("metro")
	require.NoError(t, err)
	assert.NotEmpty(t, metro.Roster().OnDuty())
}

package roster

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/core/model"
)

func zoneWith(id string, size model.ZoneSize, calls map[model.TimePeriod]int, staging int) *model.Zone {
	z := &model.Zone{ID: id, Size: size, AverageCalls: map[model.TimePeriod]int{}}
	for _, p := range model.TimePeriods {
		z.AverageCalls[p] = calls[p]
	}
	for i := 0; i < staging; i++ {
		z.Staging = append(z.Staging, model.Location{Name: fmt.Sprintf("%s-stage-%d", id, i), X: float64(i)})
	}
	return z
}

func flat(n int) map[model.TimePeriod]int {
	return map[model.TimePeriod]int{model.PeriodMorning: n, model.PeriodDay: n, model.PeriodEvening: n, model.PeriodNight: n}
}

func TestOptimumUnits(t *testing.T) {
	cfg := Config{CallsPerUnitPerShift: 4}
	big := zoneWith("big", model.SizeMedium, flat(8), 0)
	tiny := zoneWith("tiny", model.SizeMedium, flat(1), 0)

	assert.Equal(t, 2, OptimumUnits([]*model.Zone{big}, model.PeriodDay, model.KindPatrol, StaffNormal, cfg))
	// 2 + max(0.5, 0.25) = 2.5
	assert.Equal(t, 3, OptimumUnits([]*model.Zone{big, tiny}, model.PeriodDay, model.KindPatrol, StaffNormal, cfg))
	assert.Equal(t, 3, OptimumUnits([]*model.Zone{big}, model.PeriodDay, model.KindPatrol, StaffAugmented, cfg))
	assert.Equal(t, 2, OptimumUnits([]*model.Zone{big}, model.PeriodDay, model.KindPatrol, StaffMinimal, cfg))

	big.Size = model.SizeVeryLarge
	assert.Equal(t, 3, OptimumUnits([]*model.Zone{big}, model.PeriodDay, model.KindPatrol, StaffNormal, cfg))
	tiny.Size = model.SizeVerySmall
	assert.Equal(t, 0, OptimumUnits([]*model.Zone{tiny}, model.PeriodDay, model.KindPatrol, StaffNormal, cfg))

	assert.Equal(t, 0, OptimumUnits([]*model.Zone{big}, model.PeriodDay, model.KindTraffic, StaffNormal, cfg))
}

func TestOptimumUnitsTrafficSplit(t *testing.T) {
	z := zoneWith("z", model.SizeMedium, flat(8), 0)
	z.Scenarios = []model.Scenario{
		{ID: "crash", Category: model.CategoryTraffic, Priority: model.PriorityExpedited, Probability: 1},
		{ID: "theft", Category: "property", Priority: model.PriorityRoutine, Probability: 3},
	}
	cfg := Config{CallsPerUnitPerShift: 4, TrafficUnits: true}
	// Traffic: 2 calls -> 0.5 units. Patrol: 6 calls -> 1.5 units.
	assert.Equal(t, 1, OptimumUnits([]*model.Zone{z}, model.PeriodNight, model.KindTraffic, StaffNormal, cfg))
	assert.Equal(t, 2, OptimumUnits([]*model.Zone{z}, model.PeriodNight, model.KindPatrol, StaffNormal, cfg))

	table := OptimumTable([]*model.Zone{z}, model.KindPatrol, StaffNormal, cfg)
	assert.Len(t, table, len(model.TimePeriods))
}

func newTestRoster(t *testing.T, zones ...*model.Zone) *Roster {
	t.Helper()
	r, err := New("north", 1, zones, StaffNormal, Config{CallsPerUnitPerShift: 4}, rand.New(rand.NewPCG(7, 7)), nil)
	require.NoError(t, err)
	return r
}

func TestRosterBuildsCallSigns(t *testing.T) {
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, flat(8), 4))
	night := r.Shift(model.PeriodNight)
	require.Len(t, night, 2)
	assert.Equal(t, "1A-N01", night[0].ID)
	assert.Equal(t, "north", night[0].AgencyID)
	assert.Equal(t, model.PeriodNight, night[0].Shift)
	assert.Len(t, r.Units(), 8)
	assert.Equal(t, 2, r.Optimum(model.KindPatrol, model.PeriodDay))

	_, err := New("empty", 2, nil, StaffNormal, Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrNoZones)
}

func TestShiftTurnoverOrder(t *testing.T) {
	calls := flat(0)
	calls[model.PeriodNight] = 12
	calls[model.PeriodMorning] = 20
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, calls, 10))

	rot, err := r.Start(model.PeriodNight)
	require.NoError(t, err)
	require.Equal(t, 3, rot.Activated)
	require.Len(t, r.OnDuty(), 3)

	rot, err = r.Rotate(model.PeriodNight, model.PeriodMorning)
	require.NoError(t, err)
	assert.Equal(t, 5, rot.Activated)
	assert.Equal(t, 3, rot.Relieved)
	assert.Zero(t, rot.Shortfall)

	onDuty, lowest := 3, 3
	for _, ch := range rot.Changes {
		switch {
		case ch.Old == model.UnitOffDuty && ch.New != model.UnitOffDuty:
			onDuty++
		case ch.New == model.UnitOffDuty:
			onDuty--
		}
		lowest = min(lowest, onDuty)
	}
	assert.Equal(t, 3, lowest)
	assert.Equal(t, 5, onDuty)

	assert.Len(t, r.OnDuty(), 5)
	for _, u := range r.Shift(model.PeriodNight) {
		assert.False(t, u.OnDuty(), u.ID)
	}
	assert.Equal(t, model.PeriodMorning, r.Current())
}

func TestActivationUsesDistinctStaging(t *testing.T) {
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, flat(16), 4))
	_, err := r.Start(model.PeriodDay)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, u := range r.OnDuty() {
		name := u.Location().Name
		assert.False(t, seen[name], "staging %s used twice", name)
		seen[name] = true
	}
	assert.Len(t, seen, 4)
}

func TestActivationShortfallIsSoft(t *testing.T) {
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, flat(12), 2))
	rot, err := r.Start(model.PeriodEvening)
	require.NoError(t, err)
	assert.Equal(t, 2, rot.Activated)
	assert.Equal(t, 1, rot.Shortfall)
	assert.Len(t, r.OnDuty(), 2)
}

func TestRelievedUnitFinishesCall(t *testing.T) {
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, flat(4), 4))
	_, err := r.Start(model.PeriodNight)
	require.NoError(t, err)
	u := r.Shift(model.PeriodNight)[0]
	u.Assign(model.Assignment{Call: &model.Call{ID: 1}})

	rot, err := r.Rotate(model.PeriodNight, model.PeriodMorning)
	require.NoError(t, err)
	assert.Zero(t, rot.Relieved)
	assert.True(t, u.OnDuty())
	assert.True(t, u.Relieved())

	ch := u.Release()
	assert.Equal(t, model.UnitOffDuty, ch.New)
}

func TestRosterDispose(t *testing.T) {
	r := newTestRoster(t, zoneWith("z", model.SizeMedium, flat(8), 4))
	player := model.NewUnit("player", model.KindPatrol, model.PeriodDay, false)
	require.NoError(t, r.AddUnit(player))
	assert.ErrorIs(t, r.AddUnit(model.NewUnit("player", model.KindPatrol, model.PeriodDay, false)), ErrDuplicateUnit)
	player.GoOnDuty(model.Location{})
	_, err := r.Start(model.PeriodDay)
	require.NoError(t, err)
	r.OnDuty()[0].Assign(model.Assignment{Call: &model.Call{ID: 4}})

	changes, err := r.Dispose()
	require.NoError(t, err)
	assert.Len(t, changes, 3)
	assert.Empty(t, r.OnDuty())

	_, err = r.Dispose()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = r.Rotate(model.PeriodDay, model.PeriodEvening)
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestParseStaffLevel(t *testing.T) {
	l, err := ParseStaffLevel("Augmented")
	require.NoError(t, err)
	assert.Equal(t, StaffAugmented, l)
	l, err = ParseStaffLevel("")
	require.NoError(t, err)
	assert.Equal(t, StaffNormal, l)
	_, err = ParseStaffLevel("skeleton")
	assert.Error(t, err)
}

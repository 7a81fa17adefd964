package world

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/core/clock"
	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/model"
)

func quietZone(id string, x float64) *model.Zone {
	z := &model.Zone{ID: id, AverageCalls: map[model.TimePeriod]int{}}
	for _, p := range model.TimePeriods {
		z.AverageCalls[p] = 0
	}
	for i := 0; i < 3; i++ {
		z.Staging = append(z.Staging, model.Location{Name: fmt.Sprintf("%s-%d", id, i), X: x + float64(i)})
	}
	return z
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clk, err := clock.New(time.Minute, 9, clock.WithNow(func() time.Time { return start }))
	require.NoError(t, err)
	r, err := NewRegistry(Options{Clock: clk, Seed: 42, IDs: model.NewCallIDSource(0)})
	require.NoError(t, err)
	return r
}

func TestRegistryZonesAndAgencies(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddZone(quietZone("a", 0)))
	assert.ErrorIs(t, r.AddZone(quietZone("a", 0)), ErrDuplicate)
	assert.Error(t, r.AddZone(&model.Zone{ID: "broken"}))

	n, err := r.GetAverageCalls("a", model.PeriodDay)
	require.NoError(t, err)
	assert.Zero(t, n)
	locs, err := r.GetStagingLocations("a")
	require.NoError(t, err)
	assert.Len(t, locs, 3)
	_, err = r.GetStagingLocations("nowhere")
	assert.ErrorIs(t, err, ErrUnknownZone)

	ag, err := r.AddAgency(AgencySpec{ID: "north", ZoneIDs: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "north", ag.Zones()[0].AgencyID)
	_, err = r.AddAgency(AgencySpec{ID: "south", ZoneIDs: []string{"a"}})
	assert.Error(t, err)
	_, err = r.AddAgency(AgencySpec{ID: "east", ZoneIDs: []string{"missing"}})
	assert.ErrorIs(t, err, ErrUnknownZone)
	_, err = r.Agency("west")
	assert.ErrorIs(t, err, ErrUnknownAgency)
}

func TestAgencyEnableDisable(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddZone(quietZone("a", 0)))
	ag, err := r.AddAgency(AgencySpec{ID: "north", ZoneIDs: []string{"a"}})
	require.NoError(t, err)

	var shifts []events.ShiftEvent
	r.Hub().OnShift(func(e events.ShiftEvent) { shifts = append(shifts, e) })

	assert.ErrorIs(t, ag.Process(), ErrAgencyDisabled)
	require.NoError(t, r.EnableAll(context.Background()))
	assert.ErrorIs(t, ag.Enable(context.Background()), ErrAgencyEnabled)
	require.Len(t, shifts, 1)
	assert.Equal(t, model.PeriodMorning, shifts[0].New)
	onDuty := ag.Roster().OnDuty()
	require.Len(t, onDuty, 1)
	assert.Equal(t, "1A-M01", onDuty[0].ID)
	require.NoError(t, ag.Process())

	ag.OnTimePeriodChanged(model.PeriodMorning, model.PeriodDay)
	require.Len(t, shifts, 2)
	assert.Equal(t, 1, shifts[1].Relieved)

	d := ag.Dispatcher()
	require.NoError(t, r.DisableAll())
	assert.False(t, ag.Enabled())
	assert.ErrorIs(t, ag.Process(), ErrAgencyDisabled)
	assert.True(t, d.Disposed())
	for _, u := range onDuty {
		assert.False(t, u.OnDuty())
	}
	assert.ErrorIs(t, ag.Disable(), ErrAgencyDisabled)
}

func TestMutualAidLendsClosestUnit(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddZone(quietZone("a", 0)))
	require.NoError(t, r.AddZone(quietZone("b", 100)))
	north, err := r.AddAgency(AgencySpec{ID: "north", ZoneIDs: []string{"a"}})
	require.NoError(t, err)
	south, err := r.AddAgency(AgencySpec{ID: "south", ZoneIDs: []string{"b"}})
	require.NoError(t, err)
	require.NoError(t, r.EnableAll(context.Background()))
	defer func() { _ = r.DisableAll() }()
	r.EnableMutualAid()

	zone, err := r.Zone("a")
	require.NoError(t, err)
	sc := model.Scenario{ID: "riot", Priority: model.PriorityEmergency, RequiredUnits: 2}
	call := model.NewCall(r.IDs().Next(), sc, zone, model.Location{X: 1}, r.Clock().Now())
	require.NoError(t, north.Dispatcher().AddCall(call))
	require.NoError(t, north.Process())

	require.Equal(t, 2, call.UnitCount())
	lent := call.Units()[1]
	assert.Equal(t, "south", lent.AgencyID)
	assert.Equal(t, 0, south.Dispatcher().Len())

	require.NoError(t, r.UnitArrived(lent.ID))
	assert.Equal(t, model.CallOnScene, call.Status())
	require.NoError(t, r.UnitCompleted(call.Units()[0].ID))
	assert.Equal(t, model.CallCompleted, call.Status())
	assert.True(t, lent.IsIdle())

	assert.ErrorIs(t, r.UnitArrived(lent.ID), dispatch.ErrUnitNotAttached)
	assert.Error(t, r.UnitArrived("nobody"))
}

func TestDisablingBorrowerReturnsLentUnit(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddZone(quietZone("a", 0)))
	require.NoError(t, r.AddZone(quietZone("b", 100)))
	north, err := r.AddAgency(AgencySpec{ID: "north", ZoneIDs: []string{"a"}})
	require.NoError(t, err)
	south, err := r.AddAgency(AgencySpec{ID: "south", ZoneIDs: []string{"b"}})
	require.NoError(t, err)
	require.NoError(t, r.EnableAll(context.Background()))
	defer func() { _ = r.DisableAll() }()
	r.EnableMutualAid()

	var changes []events.UnitStatusEvent
	r.Hub().OnUnitStatus(func(e events.UnitStatusEvent) {
		if e.AgencyID == "south" {
			changes = append(changes, e)
		}
	})

	zone, err := r.Zone("a")
	require.NoError(t, err)
	sc := model.Scenario{ID: "riot", Priority: model.PriorityEmergency, RequiredUnits: 2}
	call := model.NewCall(r.IDs().Next(), sc, zone, model.Location{X: 1}, r.Clock().Now())
	require.NoError(t, north.Dispatcher().AddCall(call))
	require.NoError(t, north.Process())
	require.Equal(t, 2, call.UnitCount())
	lent := call.Units()[1]
	require.Equal(t, "south", lent.AgencyID)
	changes = nil

	require.NoError(t, north.Disable())
	assert.True(t, lent.IsIdle())
	assert.Nil(t, lent.Assignment())
	assert.NotContains(t, call.Units(), lent)
	require.NotEmpty(t, changes)
	assert.Equal(t, lent, changes[len(changes)-1].Unit)
	assert.Equal(t, model.UnitAvailable, changes[len(changes)-1].New)
	assert.ErrorIs(t, r.UnitArrived(lent.ID), dispatch.ErrUnitNotAttached)

	bz, err := r.Zone("b")
	require.NoError(t, err)
	next := model.NewCall(r.IDs().Next(), model.Scenario{ID: "shots", Priority: model.PriorityImmediate}, bz, model.Location{X: 101}, r.Clock().Now())
	require.NoError(t, south.Dispatcher().AddCall(next))
	require.NoError(t, south.Process())
	assert.Equal(t, model.CallDispatched, next.Status())
}

func TestAgencyDutyAndStats(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddZone(quietZone("a", 0)))
	ag, err := r.AddAgency(AgencySpec{ID: "north", ZoneIDs: []string{"a"}})
	require.NoError(t, err)

	assert.Equal(t, Stats{ID: "north"}, ag.Stats())
	assert.ErrorIs(t, ag.AssignDuty("1A-M01", model.Duty{Name: "court"}), ErrAgencyDisabled)

	require.NoError(t, r.EnableAll(context.Background()))
	defer func() { _ = r.DisableAll() }()
	st := ag.Stats()
	assert.True(t, st.Enabled)
	assert.Equal(t, model.PeriodMorning.String(), st.Period)
	assert.Equal(t, 1, st.OnDuty)
	assert.Equal(t, 1, st.Idle)
	assert.Zero(t, st.Queued)

	require.NoError(t, ag.AssignDuty("1A-M01", model.Duty{Name: "court", Priority: model.PriorityRoutine}))
	assert.Zero(t, ag.Stats().Idle)
	assert.ErrorIs(t, ag.AssignDuty("1A-M01", model.Duty{Name: "patrol"}), dispatch.ErrUnitUnavailable)
	require.NoError(t, ag.ClearDuty("1A-M01"))
	assert.Equal(t, 1, ag.Stats().Idle)
	assert.ErrorIs(t, ag.ClearDuty("1A-M01"), dispatch.ErrUnitNotAttached)
	assert.Error(t, ag.AssignDuty("9Z-X99", model.Duty{Name: "court"}))

	zone, err := r.Zone("a")
	require.NoError(t, err)
	sc := model.Scenario{ID: "riot", Priority: model.PriorityEmergency, RequiredUnits: 3}
	require.NoError(t, ag.Dispatcher().AddCall(model.NewCall(r.IDs().Next(), sc, zone, model.Location{}, r.Clock().Now())))
	require.NoError(t, ag.Process())
	st = ag.Stats()
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, 1, st.Waiting)
	assert.Zero(t, st.Idle)
}

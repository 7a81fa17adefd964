package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordCall(coremetrics.CallRecord{AgencyID: "metro", Event: "added", Priority: "routine"}))
	require.NoError(t, sink.RecordCall(coremetrics.CallRecord{AgencyID: "metro", Event: "completed", Priority: "routine", Age: time.Minute}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.calls.WithLabelValues("metro", "added", "routine")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.callAge))

	require.NoError(t, sink.RecordUnitStatus(coremetrics.UnitStatusRecord{AgencyID: "metro", Old: "off_duty", New: "available"}))
	require.NoError(t, sink.RecordUnitStatus(coremetrics.UnitStatusRecord{AgencyID: "metro", Old: "off_duty", New: "available"}))
	require.NoError(t, sink.RecordUnitStatus(coremetrics.UnitStatusRecord{AgencyID: "metro", Old: "available", New: "dispatched"}))
	require.NoError(t, sink.RecordUnitStatus(coremetrics.UnitStatusRecord{AgencyID: "metro", Old: "available", New: "off_duty"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.onDuty.WithLabelValues("metro")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.units.WithLabelValues("metro", "available")))

	require.NoError(t, sink.RecordShift(coremetrics.ShiftRecord{AgencyID: "metro", Shortfall: 2}))
	require.NoError(t, sink.RecordShift(coremetrics.ShiftRecord{AgencyID: "metro"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.shortfall.WithLabelValues("metro")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, b.RecordCall(coremetrics.CallRecord{AgencyID: "x", Event: "added", Priority: "routine"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.calls.WithLabelValues("x", "added", "routine")))
}

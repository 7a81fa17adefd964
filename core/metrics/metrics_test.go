package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/core/factory"
)

type recordSink struct {
	calls, units, shifts int
	err                  error
}

func (r *recordSink) RecordCall(CallRecord) error {
	r.calls++
	return r.err
}

func (r *recordSink) RecordUnitStatus(UnitStatusRecord) error {
	r.units++
	return r.err
}

func (r *recordSink) RecordShift(ShiftRecord) error {
	r.shifts++
	return r.err
}

type callsOnly struct{ n int }

func (c *callsOnly) RecordCall(CallRecord) error {
	c.n++
	return nil
}

func TestMultiSinkForwardsToCapableSinks(t *testing.T) {
	full := &recordSink{}
	partial := &callsOnly{}
	m := NewMultiSink(full, partial)

	require.NoError(t, m.RecordCall(CallRecord{Event: "added"}))
	require.NoError(t, m.RecordUnitStatus(UnitStatusRecord{UnitID: "1A-M01"}))
	require.NoError(t, m.RecordShift(ShiftRecord{AgencyID: "metro"}))

	assert.Equal(t, 1, full.calls)
	assert.Equal(t, 1, full.units)
	assert.Equal(t, 1, full.shifts)
	assert.Equal(t, 1, partial.n)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	ok := &recordSink{}
	m := NewMultiSink(failing, ok)

	err := m.RecordCall(CallRecord{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.calls)
}

func TestNewMetricsSink(t *testing.T) {
	name := "test-record"
	require.NoError(t, RegisterMetricsSink(name, func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	}))
	assert.Error(t, RegisterMetricsSink(name, func(map[string]any) (MetricsSink, error) { return NopSink{}, nil }))

	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: name}})
	require.NoError(t, err)
	assert.IsType(t, &recordSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: name}, {Type: name}})
	require.NoError(t, err)
	m, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, RegisterMetricsSink("test-validate", func(map[string]any) (MetricsSink, error) {
		return NopSink{}, nil
	}))
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Sinks: []factory.ModuleConfig{{Type: "test-validate"}}}.Validate())
	assert.Error(t, Config{Sinks: []factory.ModuleConfig{{}}}.Validate())
	assert.Error(t, Config{Sinks: []factory.ModuleConfig{{Type: "nowhere"}}}.Validate())
}

type closingSink struct {
	NopSink
	closed int
	err    error
}

func (c *closingSink) Close() error {
	c.closed++
	return c.err
}

type voidCloser struct {
	NopSink
	closed bool
}

func (v *voidCloser) Close() { v.closed = true }

func TestCloseReleasesEverySink(t *testing.T) {
	a := &closingSink{err: errors.New("disk full")}
	b := &voidCloser{}
	m := NewMultiSink(a, b, NopSink{})

	err := Close(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, a.closed)
	assert.True(t, b.closed)
	assert.NoError(t, Close(NopSink{}))
}

func TestNewMetricsSinkClosesOnFailure(t *testing.T) {
	built := &closingSink{}
	require.NoError(t, RegisterMetricsSink("test-closing", func(map[string]any) (MetricsSink, error) {
		return built, nil
	}))
	require.NoError(t, RegisterMetricsSink("test-failing", func(map[string]any) (MetricsSink, error) {
		return nil, errors.New("no route to host")
	}))

	_, err := NewMetricsSink([]factory.ModuleConfig{{Type: "test-closing"}, {Type: "test-failing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink 1 (test-failing)")
	assert.Equal(t, 1, built.closed)
	assert.Contains(t, SinkTypes(), "test-closing")
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/calloutsim/core/model"
)

type period struct {
	mu sync.Mutex
	p  model.TimePeriod
}

func (s *period) Period() model.TimePeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

func (s *period) set(p model.TimePeriod) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

type fakeAgency struct {
	id      string
	mu      sync.Mutex
	log     []string
	err     error
	changes [][2]model.TimePeriod
}

func (a *fakeAgency) ID() string { return a.id }

func (a *fakeAgency) Process() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, "process")
	return a.err
}

func (a *fakeAgency) OnTimePeriodChanged(old, next model.TimePeriod) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, "period")
	a.changes = append(a.changes, [2]model.TimePeriod{old, next})
}

func TestStepDeliversPeriodChangeBeforeProcess(t *testing.T) {
	clk := &period{p: model.PeriodNight}
	a := &fakeAgency{id: "north"}
	d := New(clk, func() []Agency { return []Agency{a} }, time.Second, nil)

	require.NoError(t, d.Step())
	require.NoError(t, d.Step())
	clk.set(model.PeriodMorning)
	require.NoError(t, d.Step())

	assert.Equal(t, []string{"process", "process", "period", "process"}, a.log)
	assert.Equal(t, [][2]model.TimePeriod{{model.PeriodNight, model.PeriodMorning}}, a.changes)
	assert.Equal(t, 3, d.Steps())
}

func TestStepJoinsErrorsAndSkips(t *testing.T) {
	disabled := errors.New("disabled")
	broken := errors.New("broken")
	a := &fakeAgency{id: "a", err: disabled}
	b := &fakeAgency{id: "b", err: broken}
	c := &fakeAgency{id: "c"}
	d := New(&period{}, func() []Agency { return []Agency{a, b, c} }, time.Second, nil, WithSkippable(disabled))

	err := d.Step()
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, disabled)
	assert.Len(t, c.log, 1, "later agencies still run")
}

func TestRunStopsOnCancel(t *testing.T) {
	a := &fakeAgency{id: "a"}
	d := New(&period{}, func() []Agency { return []Agency{a} }, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, func() bool { return d.Steps() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("driver did not stop")
	}
	assert.Error(t, New(&period{}, nil, 0, nil).Run(context.Background()))
}

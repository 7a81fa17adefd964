package app

import (
	"maps"
	"slices"
	"sync"

	"github.com/kilianp07/calloutsim/core/events"
)

// AgencyTally counts the events of one agency.
type AgencyTally struct {
	Calls     map[events.CallEventType]int
	Raised    map[string]int
	Shifts    int
	Shortfall int
}

// Tally aggregates hub events for run summaries.
type Tally struct {
	mu       sync.Mutex
	agencies map[string]*AgencyTally
	transits int
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{agencies: make(map[string]*AgencyTally)}
}

// Attach registers the tally on hub and returns a function detaching it.
func (t *Tally) Attach(hub *events.Hub) (detach func()) {
	rmCall := hub.OnCall(t.onCall)
	rmShift := hub.OnShift(t.onShift)
	rmUnit := hub.OnUnitStatus(func(events.UnitStatusEvent) {
		t.mu.Lock()
		t.transits++
		t.mu.Unlock()
	})
	return func() {
		rmCall()
		rmShift()
		rmUnit()
	}
}

func (t *Tally) agency(id string) *AgencyTally {
	a, ok := t.agencies[id]
	if !ok {
		a = &AgencyTally{Calls: map[events.CallEventType]int{}, Raised: map[string]int{}}
		t.agencies[id] = a
	}
	return a
}

func (t *Tally) onCall(e events.CallEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.agency(e.AgencyID)
	a.Calls[e.Type]++
	if e.Type == events.CallRaised {
		a.Raised[e.Reason]++
	}
}

func (t *Tally) onShift(e events.ShiftEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.agency(e.AgencyID)
	a.Shifts++
	a.Shortfall += e.Shortfall
}

// Agencies returns the agency ids seen so far in lexical order.
func (t *Tally) Agencies() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.agencies))
}

// Agency returns a copy of the counters of id.
func (t *Tally) Agency(id string) AgencyTally {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.agencies[id]
	if !ok {
		return AgencyTally{Calls: map[events.CallEventType]int{}, Raised: map[string]int{}}
	}
	return AgencyTally{
		Calls:     maps.Clone(a.Calls),
		Raised:    maps.Clone(a.Raised),
		Shifts:    a.Shifts,
		Shortfall: a.Shortfall,
	}
}

// Total sums a call event type over every agency.
func (t *Tally) Total(typ events.CallEventType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, a := range t.agencies {
		n += a.Calls[typ]
	}
	return n
}

// UnitTransitions returns the number of unit status changes observed.
func (t *Tally) UnitTransitions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transits
}

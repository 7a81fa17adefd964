package dispatch

import (
	"fmt"
	"strings"

	"github.com/kilianp07/calloutsim/core/model"
)

// Tier ranks how eligible a unit is for a call. Higher tiers are considered
// first.
type Tier int

const (
	TierIneligible Tier = iota
	TierVeryLow
	TierLow
	TierMedium
	TierHigh
	TierVeryHigh
)

var tierNames = []string{"ineligible", "very_low", "low", "medium", "high", "very_high"}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// ParseTier converts a tier name.
func ParseTier(s string) (Tier, error) {
	for i, n := range tierNames {
		if strings.EqualFold(s, n) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// PreemptionRule sets the tiers of units working Current when a Call of the
// given priority needs them.
type PreemptionRule struct {
	Call    string `json:"call"`
	Current string `json:"current"`
	EnRoute string `json:"en_route"`
	OnScene string `json:"on_scene"`
}

type tierKey struct {
	call    model.CallPriority
	current model.CallPriority
}

type tierPair struct {
	enRoute Tier
	onScene Tier
}

// Policy maps an incoming call priority and a unit's current work to a tier.
type Policy struct {
	table map[tierKey]tierPair
}

// DefaultPolicy returns the built-in preemption table. Routine work is only
// pulled for an expedited call while the unit is still en route.
func DefaultPolicy() *Policy {
	p := model.PriorityImmediate
	e := model.PriorityEmergency
	x := model.PriorityExpedited
	r := model.PriorityRoutine
	return &Policy{table: map[tierKey]tierPair{
		{p, r}: {TierHigh, TierMedium},
		{p, x}: {TierMedium, TierLow},
		{p, e}: {TierLow, TierVeryLow},
		{e, r}: {TierMedium, TierLow},
		{e, x}: {TierLow, TierVeryLow},
		{x, r}: {TierLow, TierIneligible},
	}}
}

// NewPolicy applies rules on top of the default table.
func NewPolicy(rules []PreemptionRule) (*Policy, error) {
	p := DefaultPolicy()
	for i, r := range rules {
		call, err := model.ParsePriority(r.Call)
		if err != nil {
			return nil, fmt.Errorf("preemption rule %d: %w", i, err)
		}
		cur, err := model.ParsePriority(r.Current)
		if err != nil {
			return nil, fmt.Errorf("preemption rule %d: %w", i, err)
		}
		if !model.MoreUrgent(call, cur) {
			return nil, fmt.Errorf("preemption rule %d: %s cannot preempt %s", i, call, cur)
		}
		enRoute, err := ParseTier(r.EnRoute)
		if err != nil {
			return nil, fmt.Errorf("preemption rule %d: %w", i, err)
		}
		onScene, err := ParseTier(r.OnScene)
		if err != nil {
			return nil, fmt.Errorf("preemption rule %d: %w", i, err)
		}
		p.table[tierKey{call, cur}] = tierPair{enRoute, onScene}
	}
	return p, nil
}

// Tier returns the eligibility of a unit working at priority current for a
// call of priority call. Equal or more urgent work is never preempted.
func (p *Policy) Tier(call, current model.CallPriority, onScene bool) Tier {
	if !model.MoreUrgent(call, current) {
		return TierIneligible
	}
	pair, ok := p.table[tierKey{call, current}]
	if !ok {
		return TierIneligible
	}
	if onScene {
		return pair.onScene
	}
	return pair.enRoute
}

package model

import (
	"cmp"
	"fmt"
	"strings"
)

// CallPriority ranks the urgency of a call. Lower values are more urgent:
// Immediate is the most urgent tier and Routine the least.
type CallPriority int

const (
	PriorityImmediate CallPriority = iota + 1
	PriorityEmergency
	PriorityExpedited
	PriorityRoutine
)

// Priorities lists every priority from most to least urgent.
var Priorities = []CallPriority{PriorityImmediate, PriorityEmergency, PriorityExpedited, PriorityRoutine}

// String returns a human-readable representation of the priority.
func (p CallPriority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityEmergency:
		return "emergency"
	case PriorityExpedited:
		return "expedited"
	case PriorityRoutine:
		return "routine"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the defined priorities.
func (p CallPriority) Valid() bool {
	return p >= PriorityImmediate && p <= PriorityRoutine
}

// ParsePriority converts a configuration string into a CallPriority.
func ParsePriority(s string) (CallPriority, error) {
	for _, p := range Priorities {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown call priority %q", s)
}

// ComparePriority orders priorities by urgency, lower is more urgent. It
// returns a negative number when a is more urgent than b, zero when they are
// equal and a positive number when a is less urgent.
func ComparePriority(a, b CallPriority) int {
	return cmp.Compare(int(a), int(b))
}

// MoreUrgent reports whether a is strictly more urgent than b.
func MoreUrgent(a, b CallPriority) bool {
	return ComparePriority(a, b) < 0
}

// UrgencyGap returns how many tiers a is more urgent than b. The result is
// zero or negative when a is not more urgent.
func UrgencyGap(a, b CallPriority) int {
	return int(b) - int(a)
}

package model

import (
	"fmt"
	"strings"
)

// TimePeriod is a coarse time-of-day bucket used for call rates and shift rotation.
type TimePeriod int

const (
	PeriodMorning TimePeriod = iota
	PeriodDay
	PeriodEvening
	PeriodNight
)

// PeriodHours is the length of every time period in game hours.
const PeriodHours = 6

// TimePeriods lists every defined period in chronological order starting at Morning.
var TimePeriods = []TimePeriod{PeriodMorning, PeriodDay, PeriodEvening, PeriodNight}

func (p TimePeriod) String() string {
	switch p {
	case PeriodMorning:
		return "morning"
	case PeriodDay:
		return "day"
	case PeriodEvening:
		return "evening"
	case PeriodNight:
		return "night"
	default:
		return "unknown"
	}
}

// StartHour returns the game hour at which the period begins.
func (p TimePeriod) StartHour() int {
	switch p {
	case PeriodMorning:
		return 6
	case PeriodDay:
		return 12
	case PeriodEvening:
		return 18
	default:
		return 0
	}
}

// Next returns the period following p.
func (p TimePeriod) Next() TimePeriod {
	return TimePeriods[(int(p)+1)%len(TimePeriods)]
}

// Previous returns the period preceding p.
func (p TimePeriod) Previous() TimePeriod {
	return TimePeriods[(int(p)+len(TimePeriods)-1)%len(TimePeriods)]
}

// PeriodForHour maps a game hour in [0,24) to its time period.
func PeriodForHour(hour int) TimePeriod {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	switch {
	case hour < 6:
		return PeriodNight
	case hour < 12:
		return PeriodMorning
	case hour < 18:
		return PeriodDay
	default:
		return PeriodEvening
	}
}

// ParseTimePeriod converts a configuration string into a TimePeriod.
func ParseTimePeriod(s string) (TimePeriod, error) {
	for _, p := range TimePeriods {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown time period %q", s)
}

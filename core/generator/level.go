package generator

import (
	"fmt"
	"strings"
	"time"
)

// CrimeLevel is the intensity regime driving call inter-arrival times.
type CrimeLevel int

const (
	CrimeNone CrimeLevel = iota
	CrimeVeryLow
	CrimeLow
	CrimeModerate
	CrimeHigh
	CrimeVeryHigh
)

// CrimeLevels lists every level in ascending intensity.
var CrimeLevels = []CrimeLevel{CrimeNone, CrimeVeryLow, CrimeLow, CrimeModerate, CrimeHigh, CrimeVeryHigh}

// DefaultCrimeWeights is the distribution rolled at every period change.
var DefaultCrimeWeights = map[string]float64{
	"none":      6,
	"very_low":  12,
	"low":       20,
	"moderate":  30,
	"high":      20,
	"very_high": 12,
}

func (l CrimeLevel) String() string {
	switch l {
	case CrimeNone:
		return "none"
	case CrimeVeryLow:
		return "very_low"
	case CrimeLow:
		return "low"
	case CrimeModerate:
		return "moderate"
	case CrimeHigh:
		return "high"
	case CrimeVeryHigh:
		return "very_high"
	default:
		return "unknown"
	}
}

// ParseCrimeLevel converts a level name.
func ParseCrimeLevel(s string) (CrimeLevel, error) {
	for _, l := range CrimeLevels {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown crime level %q", s)
}

// DelayRange widens or narrows the mean inter-arrival delay according to the
// crime level. It returns false for CrimeNone, which produces no calls.
func DelayRange(level CrimeLevel, mean time.Duration) (lo, hi time.Duration, ok bool) {
	m := float64(mean)
	var flo, fhi float64
	switch level {
	case CrimeVeryHigh:
		flo, fhi = m/2.5, m/1.75
	case CrimeHigh:
		flo, fhi = m/1.75, m/1.25
	case CrimeModerate:
		flo, fhi = m/1.25, m*1.25
	case CrimeLow:
		flo, fhi = m*1.5, m*2
	case CrimeVeryLow:
		flo, fhi = m*2, m*2.5
	default:
		return 0, 0, false
	}
	return time.Duration(flo), time.Duration(fhi), true
}

package generator

import "errors"

var (
	// ErrNoZone is returned when the agency has no zone to place a call in.
	ErrNoZone = errors.New("generator: no zone available")
	// ErrNoScenario is returned when no scenario is valid for the period.
	ErrNoScenario = errors.New("generator: no scenario available")
	// ErrNoLocation is returned when the scenario location category is empty.
	ErrNoLocation = errors.New("generator: no location available")
	// ErrCycleSkipped wraps the last failure once every attempt was used.
	ErrCycleSkipped = errors.New("generator: cycle skipped")
)

package roster

import "errors"

var (
	// ErrDisposed is returned by operations on a disposed roster.
	ErrDisposed = errors.New("roster: disposed")
	// ErrNoZones is returned when a roster is built without zones.
	ErrNoZones = errors.New("roster: agency has no zones")
	// ErrDuplicateUnit is returned when a unit id is already rostered.
	ErrDuplicateUnit = errors.New("roster: duplicate unit")
)

package world

import "errors"

var (
	// ErrAgencyDisabled is returned when a disabled agency is asked to work.
	ErrAgencyDisabled = errors.New("world: agency disabled")
	// ErrAgencyEnabled is returned by Enable on an enabled agency.
	ErrAgencyEnabled = errors.New("world: agency already enabled")
	// ErrUnknownZone is returned for zone ids missing from the catalog.
	ErrUnknownZone = errors.New("world: unknown zone")
	// ErrUnknownAgency is returned for unregistered agency ids.
	ErrUnknownAgency = errors.New("world: unknown agency")
	// ErrDuplicate is returned when an id is registered twice.
	ErrDuplicate = errors.New("world: duplicate id")
)

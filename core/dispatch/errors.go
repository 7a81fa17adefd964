package dispatch

import "errors"

var (
	// ErrDisposed is returned by every operation on a disposed dispatcher.
	ErrDisposed = errors.New("dispatch: dispatcher disposed")
	// ErrMalformedCall is returned for nil calls, calls without a zone and
	// calls that already ended.
	ErrMalformedCall = errors.New("dispatch: malformed call")
	// ErrCallOwned is returned when the call is already queued.
	ErrCallOwned = errors.New("dispatch: call already queued")
	// ErrCallNotFound is returned when the call is not in this queue.
	ErrCallNotFound = errors.New("dispatch: call not queued here")
	// ErrUnitNotAttached is returned when a unit reports on a call it does
	// not work.
	ErrUnitNotAttached = errors.New("dispatch: unit not attached to a call")
	// ErrUnitUnavailable is returned when a unit cannot take new work.
	ErrUnitUnavailable = errors.New("dispatch: unit unavailable")
	// ErrNotOnScene is returned when a primary unit completes a call nobody
	// reached.
	ErrNotOnScene = errors.New("dispatch: call not on scene")
)

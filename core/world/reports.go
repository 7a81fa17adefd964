package world

import (
	"fmt"

	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/model"
)

// dispatcherFor returns the dispatcher owning the call u is working.
func (r *Registry) dispatcherFor(u *model.Unit) (*dispatch.Dispatcher, *model.Call, error) {
	a := u.Assignment()
	if a == nil || a.Call == nil {
		return nil, nil, fmt.Errorf("%w: unit %s", dispatch.ErrUnitNotAttached, u.ID)
	}
	owner, err := r.Agency(a.Call.Owner())
	if err != nil {
		return nil, nil, err
	}
	d := owner.Dispatcher()
	if d == nil {
		return nil, nil, ErrAgencyDisabled
	}
	return d, a.Call, nil
}

func (r *Registry) unit(id string) (*model.Unit, error) {
	u, _, ok := r.FindUnit(id)
	if !ok {
		return nil, fmt.Errorf("world: unknown unit %s", id)
	}
	return u, nil
}

// UnitArrived routes an arrival report to the dispatcher owning the call,
// which may belong to another agency when the unit was lent.
func (r *Registry) UnitArrived(unitID string) error {
	u, err := r.unit(unitID)
	if err != nil {
		return err
	}
	d, _, err := r.dispatcherFor(u)
	if err != nil {
		return err
	}
	return d.UnitArrived(u)
}

// UnitCompleted routes a completion report.
func (r *Registry) UnitCompleted(unitID string) error {
	u, err := r.unit(unitID)
	if err != nil {
		return err
	}
	d, _, err := r.dispatcherFor(u)
	if err != nil {
		return err
	}
	return d.UnitCompleted(u)
}

// DeclineCall routes a refusal of the unit's current call.
func (r *Registry) DeclineCall(unitID string) error {
	u, err := r.unit(unitID)
	if err != nil {
		return err
	}
	d, c, err := r.dispatcherFor(u)
	if err != nil {
		return err
	}
	return d.DeclineCall(u, c)
}

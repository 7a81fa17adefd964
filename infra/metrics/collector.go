package metrics

import (
	"context"

	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/logger"
	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
	"github.com/kilianp07/calloutsim/internal/eventbus"
)

// CollectorBuffer is the bus subscription size used by the event collector.
const CollectorBuffer = 256

// CallRecordOf flattens a call event.
func CallRecordOf(e events.CallEvent) coremetrics.CallRecord {
	rec := coremetrics.CallRecord{
		Event:    string(e.Type),
		AgencyID: e.AgencyID,
		Reason:   e.Reason,
		Time:     e.At,
	}
	if c := e.Call; c != nil {
		rec.CallID = c.ID
		rec.ZoneID = c.ZoneID()
		rec.Scenario = c.Scenario
		rec.Category = c.Category
		rec.Priority = c.Priority.String()
		rec.Units = c.UnitCount()
		rec.Age = e.At.Sub(c.CreatedAt)
	}
	return rec
}

// UnitStatusRecordOf flattens a unit status event.
func UnitStatusRecordOf(e events.UnitStatusEvent) coremetrics.UnitStatusRecord {
	rec := coremetrics.UnitStatusRecord{
		AgencyID: e.AgencyID,
		Old:      e.Old.String(),
		New:      e.New.String(),
		Time:     e.At,
	}
	if u := e.Unit; u != nil {
		rec.UnitID = u.ID
		rec.Kind = u.Kind.String()
		rec.AI = u.IsAIUnit
	}
	return rec
}

// ShiftRecordOf flattens a shift event.
func ShiftRecordOf(e events.ShiftEvent) coremetrics.ShiftRecord {
	return coremetrics.ShiftRecord{
		AgencyID:  e.AgencyID,
		Old:       e.Old.String(),
		New:       e.New.String(),
		Activated: e.Activated,
		Relieved:  e.Relieved,
		Shortfall: e.Shortfall,
	}
}

// RunEventCollector records bus events on sink until ctx is canceled or the
// bus is closed. Sink errors are logged and do not stop the collector.
func RunEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	collect(ctx, bus.SubscribeSize(CollectorBuffer), bus, sink, logger.OrNop(log))
}

// StartEventCollector subscribes to the event bus and records events in the
// background. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.SubscribeSize(CollectorBuffer)
	go collect(ctx, sub, bus, sink, logger.OrNop(log))
}

func collect(ctx context.Context, sub <-chan eventbus.Event, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) {
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := record(sink, ev); err != nil {
				log.Warnf("metrics sink: %v", err)
			}
		}
	}
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.CallEvent:
		return sink.RecordCall(CallRecordOf(e))
	case events.UnitStatusEvent:
		if r, ok := sink.(coremetrics.UnitStatusRecorder); ok {
			return r.RecordUnitStatus(UnitStatusRecordOf(e))
		}
	case events.ShiftEvent:
		if r, ok := sink.(coremetrics.ShiftRecorder); ok {
			return r.RecordShift(ShiftRecordOf(e))
		}
	}
	return nil
}

package metrics

import "time"

// CallRecord is a call lifecycle event flattened for storage.
type CallRecord struct {
	Event    string
	CallID   int64
	AgencyID string
	ZoneID   string
	Scenario string
	Category string
	Priority string
	Reason   string
	Units    int
	// Age is the time elapsed since the call was created.
	Age  time.Duration
	Time time.Time
}

// MetricsSink records call events for observability purposes.
type MetricsSink interface {
	RecordCall(rec CallRecord) error
}

// UnitStatusRecord is a unit status transition.
type UnitStatusRecord struct {
	UnitID   string
	AgencyID string
	Kind     string
	AI       bool
	Old      string
	New      string
	Time     time.Time
}

// UnitStatusRecorder records unit status transitions.
type UnitStatusRecorder interface {
	RecordUnitStatus(rec UnitStatusRecord) error
}

// ShiftRecord summarises a roster rotation.
type ShiftRecord struct {
	AgencyID  string
	Old       string
	New       string
	Activated int
	Relieved  int
	Shortfall int
	Time      time.Time
}

// ShiftRecorder records roster rotations.
type ShiftRecorder interface {
	RecordShift(rec ShiftRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCall(CallRecord) error             { return nil }
func (NopSink) RecordUnitStatus(UnitStatusRecord) error { return nil }
func (NopSink) RecordShift(ShiftRecord) error           { return nil }

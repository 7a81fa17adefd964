// Package metrics defines the sink interfaces used to record simulation
// events. A MetricsSink records call lifecycle events; sinks may also
// implement UnitStatusRecorder or ShiftRecorder. Concrete sinks register a
// factory under a type name, and NewMetricsSink returns a MultiSink when
// more than one sink is configured.
package metrics

package metrics

import "errors"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCall forwards the record to all sinks. Every sink is tried and the
// errors are joined.
func (m *MultiSink) RecordCall(rec CallRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordCall(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordUnitStatus forwards to the sinks implementing UnitStatusRecorder.
func (m *MultiSink) RecordUnitStatus(rec UnitStatusRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(UnitStatusRecorder); ok {
			if err := r.RecordUnitStatus(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordShift forwards to the sinks implementing ShiftRecorder.
func (m *MultiSink) RecordShift(rec ShiftRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ShiftRecorder); ok {
			if err := r.RecordShift(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the resources of s when it has any.
func Close(s MetricsSink) error {
	switch c := s.(type) {
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}

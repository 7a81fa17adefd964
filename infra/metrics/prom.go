package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/calloutsim/core/events"
	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
	"github.com/kilianp07/calloutsim/core/model"
)

// PromSink records simulation events in Prometheus metrics.
type PromSink struct {
	calls     *prometheus.CounterVec
	callAge   *prometheus.HistogramVec
	units     *prometheus.CounterVec
	onDuty    *prometheus.GaugeVec
	shortfall *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_call_events_total",
			Help: "Call lifecycle events by agency, event and priority",
		}, []string{"agency", "event", "priority"}),
		callAge: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calloutsim_call_age_seconds",
			Help:    "Time between creation and end of a call",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}, []string{"agency", "priority", "event"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_unit_status_transitions_total",
			Help: "Unit status transitions by agency and new status",
		}, []string{"agency", "status"}),
		onDuty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calloutsim_units_on_duty",
			Help: "Units currently on duty",
		}, []string{"agency"}),
		shortfall: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_shift_shortfall_total",
			Help: "Units that could not be brought on duty at a shift change",
		}, []string{"agency"}),
	}
	var err error
	if s.calls, err = register(reg, s.calls); err != nil {
		return nil, err
	}
	if s.callAge, err = register(reg, s.callAge); err != nil {
		return nil, err
	}
	if s.units, err = register(reg, s.units); err != nil {
		return nil, err
	}
	if s.onDuty, err = register(reg, s.onDuty); err != nil {
		return nil, err
	}
	if s.shortfall, err = register(reg, s.shortfall); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCall counts the event and observes the age of ended calls.
func (s *PromSink) RecordCall(rec coremetrics.CallRecord) error {
	s.calls.WithLabelValues(rec.AgencyID, rec.Event, rec.Priority).Inc()
	if events.CallEventType(rec.Event).Ended() {
		s.callAge.WithLabelValues(rec.AgencyID, rec.Priority, rec.Event).Observe(rec.Age.Seconds())
	}
	return nil
}

// RecordUnitStatus counts the transition and tracks the on-duty gauge.
func (s *PromSink) RecordUnitStatus(rec coremetrics.UnitStatusRecord) error {
	s.units.WithLabelValues(rec.AgencyID, rec.New).Inc()
	off := model.UnitOffDuty.String()
	switch {
	case rec.Old == off && rec.New != off:
		s.onDuty.WithLabelValues(rec.AgencyID).Inc()
	case rec.Old != off && rec.New == off:
		s.onDuty.WithLabelValues(rec.AgencyID).Dec()
	}
	return nil
}

// RecordShift accumulates staging shortfalls.
func (s *PromSink) RecordShift(rec coremetrics.ShiftRecord) error {
	if rec.Shortfall > 0 {
		s.shortfall.WithLabelValues(rec.AgencyID).Add(float64(rec.Shortfall))
	}
	return nil
}

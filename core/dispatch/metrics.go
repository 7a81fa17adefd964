package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	callsQueued     *prometheus.GaugeVec
	assignments     *prometheus.CounterVec
	preemptions     *prometheus.CounterVec
	raises          *prometheus.CounterVec
	callsEnded      *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processPanics   *prometheus.CounterVec
)

type collectors struct {
	queued   *prometheus.GaugeVec
	assigned *prometheus.CounterVec
	preempt  *prometheus.CounterVec
	raised   *prometheus.CounterVec
	ended    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	panics   *prometheus.CounterVec
}

// newCollectors creates new metric collectors.
func newCollectors() collectors {
	return collectors{
		queued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "calloutsim_dispatch_calls_queued",
			Help: "Calls currently in the dispatcher queue",
		}, []string{"agency"}),
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_dispatch_assignments_total",
			Help: "Units assigned to calls",
		}, []string{"agency", "priority"}),
		preempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_dispatch_preemptions_total",
			Help: "Units pulled off lower priority work",
		}, []string{"agency"}),
		raised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_dispatch_raises_total",
			Help: "Escalation signals emitted",
		}, []string{"agency", "reason"}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_dispatch_calls_ended_total",
			Help: "Calls that left the queue by final status",
		}, []string{"agency", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calloutsim_dispatch_process_duration_seconds",
			Help:    "Duration of one scheduling tick",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}, []string{"agency"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calloutsim_dispatch_call_panics_total",
			Help: "Calls skipped after a recovered panic",
		}, []string{"agency"}),
	}
}

func (c collectors) install() {
	callsQueued, assignments, preemptions, raises = c.queued, c.assigned, c.preempt, c.raised
	callsEnded, processDuration, processPanics = c.ended, c.duration, c.panics
}

func init() {
	newCollectors().install()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(callsQueued, assignments, preemptions, raises, callsEnded, processDuration, processPanics)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	newCollectors().install()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

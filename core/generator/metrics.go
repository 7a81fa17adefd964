package generator

import "github.com/prometheus/client_golang/prometheus"

var (
	callsGenerated *prometheus.CounterVec
	cyclesSkipped  *prometheus.CounterVec
	crimeLevel     *prometheus.GaugeVec
	intervalHist   *prometheus.HistogramVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.GaugeVec, *prometheus.HistogramVec) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calloutsim_generator_calls_total",
		Help: "Calls produced by the incident generator",
	}, []string{"agency", "priority"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calloutsim_generator_skipped_cycles_total",
		Help: "Generation cycles skipped after exhausting every attempt",
	}, []string{"agency"})
	level := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "calloutsim_generator_crime_level",
		Help: "Current crime level (0 none to 5 very high)",
	}, []string{"agency"})
	interval := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calloutsim_generator_interval_seconds",
		Help:    "Sleep between two generation cycles",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"agency"})
	return calls, skipped, level, interval
}

func init() {
	callsGenerated, cyclesSkipped, crimeLevel, intervalHist = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers generator metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(callsGenerated, cyclesSkipped, crimeLevel, intervalHist)
}

// ResetMetrics reinitializes the collectors for tests and registers them on
// reg when not nil.
func ResetMetrics(reg prometheus.Registerer) {
	callsGenerated, cyclesSkipped, crimeLevel, intervalHist = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

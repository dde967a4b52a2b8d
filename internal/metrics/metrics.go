package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	callDurationBucketStart  = 5.0
	callDurationBucketFactor = 1.5
	callDurationBucketCount  = 8
)

const (
	sweepDurationBucketStart  = 1.0
	sweepDurationBucketFactor = 2.0
	sweepDurationBucketCount  = 12
)

var DialSubmissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dial_submissions_total",
		Help: "Dial jobs submitted to the worker pool",
	},
	[]string{"mode"},
)

var CallOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "call_outcomes_total",
		Help: "Terminal call outcomes by kind",
	},
	[]string{"outcome"},
)

var CallDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "call_duration_seconds",
		Help: "Simulated talk duration of completed calls",
		Buckets: prometheus.ExponentialBuckets(
			callDurationBucketStart,
			callDurationBucketFactor,
			callDurationBucketCount,
		),
	},
)

var SweepDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "sweep_duration_seconds",
		Help: "Wall time of one batch dial sweep",
		Buckets: prometheus.ExponentialBuckets(
			sweepDurationBucketStart,
			sweepDurationBucketFactor,
			sweepDurationBucketCount,
		),
	},
)

func init() {
	prometheus.MustRegister(
		DialSubmissions,
		CallOutcomes,
		CallDuration,
		SweepDuration,
	)
}
